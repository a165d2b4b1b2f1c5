package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
)

func (a *App) getStatus() string {
	s := "signed out"
	if owner := a.session.OwnerID(); owner != "" {
		s = owner
	}
	if a.receipts.Loading() {
		s += " syncing"
	}
	return fmt.Sprintf("(%s)", s)
}

func (a *App) Root(ctx context.Context) {
	log.Println("Welcome to ReceiptVault CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
