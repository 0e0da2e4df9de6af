// Package trellis defines the typed shapes of the Trellis document formats
// this tool reads (certificates of insurance and fsqa audits) and extracts
// the flattened detail columns the reports carry.
package trellis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/trellisfw/trellis-reports/internal/report"
)

// Document collection names within the store.
const (
	CollectionCois   = "cois"
	CollectionAudits = "fsqa-audits"
)

// MetaRef is the _meta link embedded in a document body. The full metadata
// envelope lives at its own resource and must be fetched separately.
type MetaRef struct {
	ID string `json:"_id"`
}

// Meta is a document's metadata envelope.
type Meta struct {
	ID    string `json:"_id"`
	Stats struct {
		Created float64 `json:"created"`
	} `json:"stats"`
	Copy *struct {
		Src struct {
			Ref string `json:"_ref"`
		} `json:"src"`
	} `json:"copy"`
}

// CopySource returns the id of the document this one was copied from, or
// empty if the document is not a derived copy.
func (m *Meta) CopySource() string {
	if m == nil || m.Copy == nil {
		return ""
	}
	return m.Copy.Src.Ref
}

// sourceID resolves the "source id" column: the copy source when the
// document is a derived copy. A document that is not a copy is its own
// source.
func sourceID(meta *Meta, id string) string {
	if src := meta.CopySource(); src != "" {
		return src
	}
	return id
}

func (m *Meta) uploadDate() string {
	if m == nil || m.Stats.Created == 0 {
		return ""
	}
	return time.Unix(int64(m.Stats.Created), 0).UTC().Format(report.DayFormat)
}

// COI is a certificate-of-insurance document body.
type COI struct {
	ID          string  `json:"_id"`
	Meta        MetaRef `json:"_meta"`
	Certificate *struct {
		FileName string `json:"file_name"`
	} `json:"certificate"`
	Holder   *namedEntity `json:"holder"`
	Producer *namedEntity `json:"producer"`
	Insured  *namedEntity `json:"insured"`
	Policies map[string]struct {
		ExpireDate string `json:"expire_date"`
	} `json:"policies"`
}

// Audit is an fsqa-audit document body.
type Audit struct {
	ID           string       `json:"_id"`
	Meta         MetaRef      `json:"_meta"`
	Scheme       *namedEntity `json:"scheme"`
	Organization *namedEntity `json:"organization"`
	Validity     *struct {
		End string `json:"end"`
	} `json:"certificate_validity_period"`
	Score *struct {
		Final struct {
			Value json.Number `json:"value"`
			Units string      `json:"units"`
		} `json:"final"`
	} `json:"score"`
}

type namedEntity struct {
	Name string `json:"name"`
}

// Details flattens a COI body and its metadata envelope into report
// columns. Returns an error when a required field is absent so the caller
// can drop the malformed document and continue.
func (c *COI) Details(meta *Meta) (report.DocumentDetails, error) {
	if c.ID == "" {
		return report.DocumentDetails{}, fmt.Errorf("coi has no _id")
	}
	if c.Certificate == nil || c.Certificate.FileName == "" {
		return report.DocumentDetails{}, fmt.Errorf("coi %s has no certificate file name", c.ID)
	}
	if c.Holder == nil || c.Producer == nil || c.Insured == nil {
		return report.DocumentDetails{}, fmt.Errorf("coi %s is missing holder, producer, or insured", c.ID)
	}
	expiration, err := earliestExpiration(c.Policies)
	if err != nil {
		return report.DocumentDetails{}, fmt.Errorf("coi %s: %w", c.ID, err)
	}

	d := report.DocumentDetails{
		Type:          "coi",
		ID:            c.ID,
		SourceID:      sourceID(meta, c.ID),
		Name:          c.Certificate.FileName,
		UploadDate:    meta.uploadDate(),
		CoiHolder:     c.Holder.Name,
		CoiProducer:   c.Producer.Name,
		CoiInsured:    c.Insured.Name,
		CoiExpiration: expiration,
	}
	return d, nil
}

// Details flattens an audit body and its metadata envelope into report
// columns.
func (a *Audit) Details(meta *Meta) (report.DocumentDetails, error) {
	if a.ID == "" {
		return report.DocumentDetails{}, fmt.Errorf("audit has no _id")
	}
	if a.Scheme == nil || a.Organization == nil {
		return report.DocumentDetails{}, fmt.Errorf("audit %s is missing scheme or organization", a.ID)
	}
	if a.Validity == nil {
		return report.DocumentDetails{}, fmt.Errorf("audit %s has no validity period", a.ID)
	}
	if a.Score == nil {
		return report.DocumentDetails{}, fmt.Errorf("audit %s has no score", a.ID)
	}
	end, err := parseDate(a.Validity.End)
	if err != nil {
		return report.DocumentDetails{}, fmt.Errorf("audit %s: validity end: %w", a.ID, err)
	}

	d := report.DocumentDetails{
		Type:            "audit",
		ID:              a.ID,
		SourceID:        sourceID(meta, a.ID),
		Name:            fmt.Sprintf("%s Audit - %s", a.Scheme.Name, a.Organization.Name),
		UploadDate:      meta.uploadDate(),
		AuditOrg:        a.Organization.Name,
		AuditExpiration: end.Format(report.DayFormat),
		AuditScore:      fmt.Sprintf("%s %s", a.Score.Final.Value, a.Score.Final.Units),
	}
	return d, nil
}

// earliestExpiration returns the earliest expire_date across the
// certificate's policies, formatted MM/DD/YYYY.
func earliestExpiration(policies map[string]struct {
	ExpireDate string `json:"expire_date"`
}) (string, error) {
	if len(policies) == 0 {
		return "", fmt.Errorf("no policies")
	}
	var earliest time.Time
	for _, p := range policies {
		t, err := parseDate(p.ExpireDate)
		if err != nil {
			return "", fmt.Errorf("policy expire_date: %w", err)
		}
		if earliest.IsZero() || t.Before(earliest) {
			earliest = t
		}
	}
	return earliest.Format(report.DayFormat), nil
}

// dateLayouts covers the formats seen in stored documents: ISO dates with
// and without time, and US-style dates.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	report.DayFormat,
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
