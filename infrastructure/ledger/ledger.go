// Package ledger posts submitted documents to the accounting ledger and
// hands back the reference the ledger assigned. Posting happens exactly
// once, at the draft -> submitted transition; a failed post leaves the
// document in draft so the user can retry.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Submission is the slice of a document the ledger cares about.
type Submission struct {
	DocumentID int64
	DocType    string
	DocNumber  string
	Supplier   string
	Currency   string
	TotalCost  float64
}

// Poster posts a document submission and returns the ledger reference.
type Poster interface {
	Post(ctx context.Context, sub Submission) (string, error)
}

// LocalPoster assigns ledger references locally. Installations without an
// external accounting system run with this; the reference format matches
// what downstream exports expect.
type LocalPoster struct {
	mu  sync.Mutex
	seq int64
	now func() time.Time
}

func NewLocalPoster() *LocalPoster {
	return &LocalPoster{now: time.Now}
}

func (p *LocalPoster) Post(ctx context.Context, sub Submission) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if sub.DocumentID == 0 {
		return "", fmt.Errorf("ledger: cannot post unsaved document")
	}
	if sub.DocNumber == "" {
		return "", fmt.Errorf("ledger: document %d has no number", sub.DocumentID)
	}

	p.mu.Lock()
	p.seq++
	n := p.seq
	p.mu.Unlock()

	return fmt.Sprintf("LGR-%s-%06d", p.now().Format("20060102"), n), nil
}
