package upload

import (
	"time"

	"github.com/google/uuid"

	"aisreporter/internal/constants"
	"aisreporter/internal/record"
)

// Batch is one drained buffer snapshot on its way to the endpoint.
type Batch struct {
	ID         string
	EncodeTime time.Time
	Name       string
	URL        string
	Records    []record.Record
}

func NewBatch(name, url string, records []record.Record, now time.Time) Batch {
	return Batch{
		ID:         uuid.NewString(),
		EncodeTime: now,
		Name:       name,
		URL:        url,
		Records:    records,
	}
}

// Envelope is the jsonais request body.
type Envelope struct {
	EncodeTime string  `json:"encodetime"`
	Protocol   string  `json:"protocol"`
	Groups     []Group `json:"groups"`
}

type Group struct {
	Path []PathEntry     `json:"path"`
	Msgs []record.Record `json:"msgs"`
}

type PathEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Envelope wraps the batch in a single jsonais group. An empty sender name
// is sent as NOCALL.
func (b Batch) Envelope() Envelope {
	name := b.Name
	if name == "" {
		name = constants.DefaultSenderName
	}

	msgs := b.Records
	if msgs == nil {
		msgs = []record.Record{}
	}

	return Envelope{
		EncodeTime: record.FormatTimestamp(b.EncodeTime),
		Protocol:   constants.JSONAISProtocol,
		Groups: []Group{
			{
				Path: []PathEntry{{Name: name, URL: b.URL}},
				Msgs: msgs,
			},
		},
	}
}
