package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mhadley/receiptvault/internal/filex"
)

// getSecret is an indirection used to facilitate testing.
var getSecret = GetSecret

// Login asks for a bearer ID token, derives the owner id from it, and keeps
// the token on disk so the session survives restarts. The token comes from
// the external sign-in flow; it is read without echo.
func (a *App) Login(ctx context.Context) error {
	token, err := getSecret("Paste ID token", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.session.SignIn(token); err != nil {
		log.Printf("Sign-in unsuccessful: %s", err.Error())
		return err
	}
	if err := os.WriteFile(a.config.TokenPath, []byte(token), 0o600); err != nil {
		log.Printf("could not persist token: %s", err.Error())
	}

	fmt.Println("Signed in as", a.session.OwnerID())
	go a.receipts.LoadFromRemote(ctx)
	return nil
}

// Logout signs out and wipes all local state: the persisted collections,
// the cached images, and the stored token. In-flight remote deletes are not
// waited for.
func (a *App) Logout(ctx context.Context) error {
	a.session.SignOut()
	a.receipts.Clear()
	a.receipts.ClearCachedImages()
	if err := a.receipts.ClearLocalCache(ctx); err != nil {
		log.Printf("error clearing receipt cache: %v", err)
	}
	if err := a.cards.ClearLocalCache(ctx); err != nil {
		log.Printf("error clearing card cache: %v", err)
	}
	if err := filex.Remove(a.config.TokenPath); err != nil {
		log.Printf("error removing token: %v", err)
	}
	fmt.Println("Signed out.")
	return nil
}
