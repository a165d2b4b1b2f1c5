package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/mhadley/receiptvault/internal/client/models"
)

// getSimpleText is an indirection used to facilitate testing.
var getSimpleText = GetSimpleText

// List prints a short textual representation of each receipt, with its
// image cache status and pending-upload state.
func (a *App) List(ctx context.Context) error {
	items := a.receipts.Receipts()
	if len(items) == 0 {
		fmt.Println("No receipts.")
		return nil
	}
	statuses := a.receipts.CacheStatuses()
	for _, r := range items {
		badge := ""
		switch {
		case r.PendingUpload && r.UploadProgress != nil:
			badge = fmt.Sprintf(" [uploading %d%%]", *r.UploadProgress)
		case r.PendingUpload:
			badge = " [pending upload]"
		case r.RemoteImageRef != "" || r.LocalImagePath != "":
			badge = fmt.Sprintf(" [image %s]", statuses[r.ID])
		}
		fmt.Printf("%s  %s  %s  %s  %.2f%s\n", r.ID, r.Date, r.Name, r.Store, r.Price, badge)
	}
	return nil
}

// Add prompts for the receipt fields and an optional image path, then hands
// the record to the coordinator.
func (a *App) Add(ctx context.Context) error {
	r, err := a.inputReceipt(ctx, models.Receipt{})
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	added, err := a.receipts.Add(ctx, r)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	if added.PendingUpload {
		fmt.Printf("Added %s (image upload queued)\n", added.ID)
	} else {
		fmt.Printf("Added %s\n", added.ID)
	}
	return nil
}

// Edit prompts for an id, shows the current values as defaults, and updates
// the record. Entering a new image path queues a replacement upload.
func (a *App) Edit(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter receipt id to edit", os.Stdout)
	if err != nil {
		return err
	}
	current, ok := a.receipts.GetByID(id)
	if !ok {
		fmt.Println("No such receipt:", id)
		return nil
	}
	r, err := a.inputReceipt(ctx, current)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	if _, err := a.receipts.Update(ctx, r); err != nil {
		log.Printf("error: %v", err)
		return err
	}
	fmt.Println("Updated", id)
	return nil
}

// inputReceipt collects the receipt fields, using cur's values when the user
// enters nothing.
func (a *App) inputReceipt(ctx context.Context, cur models.Receipt) (models.Receipt, error) {
	name, err := getSimpleText(a.reader, orDefault("Enter name", cur.Name), os.Stdout)
	if err != nil {
		return models.Receipt{}, err
	}
	if name == "" {
		name = cur.Name
	}
	if name == "" {
		return models.Receipt{}, fmt.Errorf("name is required")
	}

	storeName, err := getSimpleText(a.reader, orDefault("Enter store", cur.Store), os.Stdout)
	if err != nil {
		return models.Receipt{}, err
	}
	if storeName == "" {
		storeName = cur.Store
	}

	date := cur.Date
	dateText, err := getSimpleText(a.reader, orDefault("Enter date (YYYY-MM-DD)", cur.Date.String()), os.Stdout)
	if err != nil {
		return models.Receipt{}, err
	}
	if dateText != "" {
		date, err = models.ParseDate(dateText)
		if err != nil {
			return models.Receipt{}, fmt.Errorf("parse date: %w", err)
		}
	}

	price := cur.Price
	priceText, err := getSimpleText(a.reader, orDefault("Enter price", strconv.FormatFloat(cur.Price, 'f', 2, 64)), os.Stdout)
	if err != nil {
		return models.Receipt{}, err
	}
	if priceText != "" {
		price, err = strconv.ParseFloat(priceText, 64)
		if err != nil {
			return models.Receipt{}, fmt.Errorf("parse price: %w", err)
		}
	}

	imagePath, err := getSimpleText(a.reader, "Enter image file path (empty to keep current)", os.Stdout)
	if err != nil {
		return models.Receipt{}, err
	}

	out := cur
	out.Name = name
	out.Store = storeName
	out.Date = date
	out.Price = price
	if imagePath != "" {
		out.LocalImagePath = imagePath
	}
	return out, nil
}

func orDefault(prompt, cur string) string {
	if cur == "" {
		return prompt
	}
	return fmt.Sprintf("%s [%s]", prompt, cur)
}

// Show displays a single receipt by ID, including its cached image path
// when one is present.
func (a *App) Show(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter receipt id to show", os.Stdout)
	if err != nil {
		return err
	}
	r, ok := a.receipts.GetByID(id)
	if !ok {
		fmt.Println("No such receipt:", id)
		return nil
	}

	fmt.Printf("Name:  %s\n", r.Name)
	fmt.Printf("Store: %s\n", r.Store)
	fmt.Printf("Date:  %s\n", r.Date)
	fmt.Printf("Price: %.2f\n", r.Price)
	if r.PendingUpload {
		fmt.Println("Image: upload pending")
	}
	if path, ok := a.receipts.CachedImagePath(id); ok {
		fmt.Printf("Image: %s\n", path)
	} else if r.RemoteImageRef != "" {
		fmt.Printf("Image: remote (%s)\n", a.receipts.CacheStatuses()[id])
	}
	return nil
}

// Delete removes a receipt by its identifier, prompting the user for the ID.
func (a *App) Delete(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter receipt id to delete", os.Stdout)
	if err != nil {
		return err
	}
	if err := a.receipts.Delete(ctx, id); err != nil {
		log.Printf("error: %v", err)
		return err
	}
	fmt.Println("Deleted", id)
	return nil
}

// Sync pulls the remote collection and merges it into the local one.
func (a *App) Sync(ctx context.Context) error {
	if !a.isSignedIn() {
		fmt.Println("Sign in first.")
		return nil
	}
	a.receipts.LoadFromRemote(ctx)
	fmt.Println("Synced.")
	return nil
}

// Retry re-runs the image prefetch pass, picking up failed downloads.
func (a *App) Retry(ctx context.Context) error {
	a.receipts.RetryMissingImageDownloads(ctx)
	fmt.Println("Retrying missing image downloads.")
	return nil
}

// Search sets the name filter used by List; with no argument it clears it.
func (a *App) Search(ctx context.Context, args []string) error {
	a.receipts.SetQuery(strings.Join(args, " "))
	return a.List(ctx)
}

// Filter restricts List to one store; with no argument it clears the filter
// and prints the known store names.
func (a *App) Filter(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.receipts.SetStoreFilter("")
		fmt.Println("Stores:", strings.Join(a.receipts.Stores(), ", "))
		return nil
	}
	a.receipts.SetStoreFilter(strings.Join(args, " "))
	return a.List(ctx)
}

// Jobs lists the queued upload jobs.
func (a *App) Jobs(ctx context.Context) error {
	keys, err := a.sched.Pending(ctx)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	if len(keys) == 0 {
		fmt.Println("No queued jobs.")
		return nil
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	return nil
}
