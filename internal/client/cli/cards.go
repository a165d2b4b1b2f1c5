package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mhadley/receiptvault/internal/client/models"
)

// Cards prints the loyalty cards in display order.
func (a *App) Cards(ctx context.Context) error {
	cards := a.cards.Cards()
	if len(cards) == 0 {
		fmt.Println("No loyalty cards.")
		return nil
	}
	for _, c := range cards {
		fmt.Printf("%s  %s  %s:%s\n", c.ID, c.Name, c.BarcodeType, c.BarcodeValue)
	}
	return nil
}

// AddCard prompts for the card fields and stores a new loyalty card.
func (a *App) AddCard(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter card name", os.Stdout)
	if err != nil {
		return err
	}
	barcodeType, err := getSimpleText(a.reader, "Enter barcode type (e.g. EAN_13, QR_CODE)", os.Stdout)
	if err != nil {
		return err
	}
	barcodeValue, err := getSimpleText(a.reader, "Enter barcode value", os.Stdout)
	if err != nil {
		return err
	}
	notes, err := getSimpleText(a.reader, "Enter notes (optional)", os.Stdout)
	if err != nil {
		return err
	}

	card := models.NewLoyaltyCard("", name, barcodeType, barcodeValue)
	card.Notes = notes

	added, err := a.cards.Add(ctx, card)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	fmt.Println("Added card", added.ID)
	return nil
}

// DeleteCard removes a loyalty card by its identifier.
func (a *App) DeleteCard(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter card id to delete", os.Stdout)
	if err != nil {
		return err
	}
	if err := a.cards.Delete(ctx, id); err != nil {
		log.Printf("error: %v", err)
		return err
	}
	fmt.Println("Deleted card", id)
	return nil
}
