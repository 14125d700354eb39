package storage

import (
	"context"
	"time"

	"github.com/tidwall/gjson"
)

// Transaction is one command/response exchange.
type Transaction struct {
	ClTRID   string        `json:"clTRID"`
	SvTRID   string        `json:"svTRID,omitempty"`
	Command  string        `json:"command"`
	Code     string        `json:"code,omitempty"`
	Msg      string        `json:"msg,omitempty"`
	Remote   string        `json:"remote,omitempty"`
	SentAt   time.Time     `json:"sentAt"`
	Duration time.Duration `json:"duration"`
	Request  string        `json:"request,omitempty"`
	Response string        `json:"response,omitempty"`
}

// Journal records transactions in a Store keyed by clTRID. A later exchange
// reusing a clTRID replaces the earlier one.
type Journal struct {
	store Store

	// KeepPayloads stores the request and response XML alongside the
	// summary.
	KeepPayloads bool
}

func NewJournal(store Store) *Journal {
	return &Journal{store: store}
}

// Record stores tx. Transactions without a clTRID, such as hello, are not
// journaled.
func (j *Journal) Record(ctx context.Context, tx Transaction) error {
	if tx.ClTRID == "" {
		return nil
	}

	if !j.KeepPayloads {
		tx.Request = ""
		tx.Response = ""
	}

	return j.store.Set(ctx, tx.ClTRID, tx)
}

// Lookup returns the transaction recorded for clTRID.
func (j *Journal) Lookup(ctx context.Context, clTRID string) (*Transaction, error) {
	raw, err := j.store.Get(ctx, clTRID)
	if err != nil {
		return nil, err
	}

	return parseTransaction(gjson.ParseBytes(raw)), nil
}

// Failures returns every recorded transaction whose result code is outside
// the 1xxx range.
func (j *Journal) Failures() ([]*Transaction, error) {
	all, err := j.store.Backup()
	if err != nil {
		return nil, err
	}

	var out []*Transaction
	gjson.ParseBytes(all).ForEach(func(_, value gjson.Result) bool {
		if code := value.Get("code").String(); code != "" && code[0] != '1' {
			out = append(out, parseTransaction(value))
		}
		return true
	})

	return out, nil
}

// Len returns the number of recorded transactions.
func (j *Journal) Len() (int, error) {
	all, err := j.store.Backup()
	if err != nil {
		return 0, err
	}

	n := 0
	gjson.ParseBytes(all).ForEach(func(_, _ gjson.Result) bool {
		n++
		return true
	})

	return n, nil
}

// Updates streams every transaction as it is recorded.
func (j *Journal) Updates() <-chan *Update {
	return j.store.ListenToUpdates()
}

func (j *Journal) Store() Store {
	return j.store
}

func parseTransaction(r gjson.Result) *Transaction {
	tx := &Transaction{
		ClTRID:   r.Get("clTRID").String(),
		SvTRID:   r.Get("svTRID").String(),
		Command:  r.Get("command").String(),
		Code:     r.Get("code").String(),
		Msg:      r.Get("msg").String(),
		Remote:   r.Get("remote").String(),
		Duration: time.Duration(r.Get("duration").Int()),
		Request:  r.Get("request").String(),
		Response: r.Get("response").String(),
	}

	if sent := r.Get("sentAt").String(); sent != "" {
		tx.SentAt, _ = time.Parse(time.RFC3339Nano, sent)
	}

	return tx
}
