package ps

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// Transaction identifies one commit of the store.
type Transaction struct {
	Id      string
	When    time.Time
	Author  string // "Name <email>" format
	Message string
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s}", transaction.Id, transaction.When, transaction.Author)
}

func formatAuthor(sig object.Signature) string {
	if sig.Name == "" && sig.Email == "" {
		return ""
	}
	return fmt.Sprintf("%s <%s>", sig.Name, sig.Email)
}

func transactionOf(c *object.Commit) Transaction {
	return Transaction{
		Id:      c.Hash.String(),
		When:    c.Committer.When,
		Author:  formatAuthor(c.Author),
		Message: strings.TrimSpace(c.Message),
	}
}

// LatestTransaction returns HEAD, or an empty Transaction for an empty store.
func (persistence *Persistence) LatestTransaction() Transaction {
	commit, err := persistence.headCommit()
	if err != nil || commit == nil {
		return Transaction{}
	}
	return transactionOf(commit)
}

// TransactionsSince lists commits newer than asof, newest first.
func (persistence *Persistence) TransactionsSince(asof time.Time) []Transaction {
	return persistence.log(&git.LogOptions{Since: &asof})
}

// TableHistory lists the commits that changed a variant, newest first.
func (persistence *Persistence) TableHistory(variant string) []Transaction {
	prefix := variant + "/"
	return persistence.log(&git.LogOptions{
		PathFilter: func(p string) bool {
			return p == headerPath(variant) || strings.HasPrefix(p, prefix)
		},
	})
}

func (persistence *Persistence) log(opts *git.LogOptions) []Transaction {
	if !persistence.IsInitialized() {
		return nil
	}
	if _, err := persistence.repo.Head(); err != nil {
		return nil
	}

	cIter, err := persistence.repo.Log(opts)
	if err != nil {
		return nil
	}
	defer cIter.Close()

	var transactions []Transaction
	cIter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, transactionOf(c))
		return nil
	})
	return transactions
}
