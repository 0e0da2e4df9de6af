// Package report projects the crawled share graph and the share-job history
// into the three flat report tables, and decides whether a freshly built
// table duplicates the previous day's.
package report

import (
	"time"
)

// Kind identifies one of the three report tables.
type Kind string

const (
	// UserAccess lists every document each trading partner can see.
	UserAccess Kind = "user-access"

	// DocumentShares lists every document with the partners it is shared
	// with.
	DocumentShares Kind = "document-shares"

	// EventLog lists share-job outcomes for the reporting window.
	EventLog Kind = "event-log"
)

// DateFormat is the YYYY-MM-DD layout used for day-index keys and artifact
// file names.
const DateFormat = "2006-01-02"

// EventTimeFormat is the layout for the "event time" column.
const EventTimeFormat = "01/02/2006 15:04"

// DayFormat is the MM/DD/YYYY layout used for date-valued document columns.
const DayFormat = "01/02/2006"

// DisplayName returns the human-readable report name used in CLI output.
func (k Kind) DisplayName() string {
	switch k {
	case UserAccess:
		return "User Access"
	case DocumentShares:
		return "Document Shares"
	case EventLog:
		return "Event Log"
	}
	return string(k)
}

// FileSuffix returns the report's artifact name without the date or local
// prefix.
func (k Kind) FileSuffix() string {
	switch k {
	case UserAccess:
		return "user_access.xlsx"
	case DocumentShares:
		return "document_shares.xlsx"
	default:
		return "event_log.xlsx"
	}
}

// FileName returns the artifact name for the report under prefix, typically
// a date or a local output path.
func (k Kind) FileName(prefix string) string {
	return prefix + "_" + k.FileSuffix()
}

// RemoteBase returns the report's archive location within the store. Each
// archive holds a day-index mapping dates to published artifacts.
func (k Kind) RemoteBase() string {
	switch k {
	case UserAccess:
		return "/bookmarks/services/trellis-reports/current-tradingpartnershares"
	case DocumentShares:
		return "/bookmarks/services/trellis-reports/current-shareabledocs"
	default:
		return "/bookmarks/services/trellis-reports/event-log"
	}
}

// Headers returns the fixed column order for the report kind.
func (k Kind) Headers() []string {
	switch k {
	case UserAccess:
		return []string{
			"trading partner name",
			"trading partner masterid",
			"document type",
			"document id",
			"source id",
			"document name",
			"upload date",
			"coi holder",
			"coi producer",
			"coi insured",
			"coi expiration date",
			"audit organization name",
			"audit expiration date",
			"audit score",
		}
	case DocumentShares:
		return []string{
			"document name",
			"document id",
			"document type",
			"trading partner name",
			"trading partner masterid",
			"upload date",
			"coi holder",
			"coi producer",
			"coi insured",
			"coi expiration date",
			"audit organization name",
			"audit expiration date",
			"audit score",
		}
	default:
		return []string{
			"share status",
			"document id",
			"source id",
			"document name",
			"document type",
			"upload date",
			"coi expiration date",
			"coi holder",
			"coi producer",
			"coi insured",
			"audit organization name",
			"audit expiration date",
			"audit score",
			"trading partner masterid",
			"trading partner name",
			"recipient email address",
			"event time",
			"event type",
		}
	}
}

// Report is one synthesized table: a fixed header row plus data rows whose
// cells align with the headers. Rows are built unordered; Canonicalize puts
// them in the kind's canonical order before any comparison or publication.
type Report struct {
	Kind    Kind
	Headers []string
	Rows    [][]string
}

// DocumentDetails holds the document-attribute columns shared by all three
// reports. Fields for the other document type are left empty.
type DocumentDetails struct {
	ID              string
	SourceID        string
	Type            string
	Name            string
	UploadDate      string
	CoiHolder       string
	CoiProducer     string
	CoiInsured      string
	CoiExpiration   string
	AuditOrg        string
	AuditExpiration string
	AuditScore      string
}

// CanonicalID returns the identifier that joins partner holdings with
// document share sets: the copy-source id when the document is a derived
// copy, otherwise the document's own id.
func (d DocumentDetails) CanonicalID() string {
	if d.SourceID != "" {
		return d.SourceID
	}
	return d.ID
}

func (d DocumentDetails) values() map[string]string {
	return map[string]string{
		"document id":             d.ID,
		"source id":               d.SourceID,
		"document type":           d.Type,
		"document name":           d.Name,
		"upload date":             d.UploadDate,
		"coi holder":              d.CoiHolder,
		"coi producer":            d.CoiProducer,
		"coi insured":             d.CoiInsured,
		"coi expiration date":     d.CoiExpiration,
		"audit organization name": d.AuditOrg,
		"audit expiration date":   d.AuditExpiration,
		"audit score":             d.AuditScore,
	}
}

// PartnerRef names a trading partner in a share relationship.
type PartnerRef struct {
	Name     string
	MasterID string
}

// PartnerAccess is one trading partner and the documents it can see.
type PartnerAccess struct {
	Name      string
	MasterID  string
	Documents []DocumentDetails
}

// DocumentShare is one document and the partners that can see it.
type DocumentShare struct {
	Doc      DocumentDetails
	Partners []PartnerRef
}

// Event is one normalized share-job outcome.
type Event struct {
	Status    string
	Doc       DocumentDetails
	Partner   PartnerRef
	Email     string
	EventTime string
	EventType string
}

// BuildUserAccess builds the user access table. Every partner appears at
// least once: a partner holding nothing gets one row with empty document
// columns, so absence of access is representable.
func BuildUserAccess(partners []PartnerAccess) *Report {
	r := &Report{Kind: UserAccess, Headers: UserAccess.Headers()}
	for _, p := range partners {
		base := map[string]string{
			"trading partner name":     p.Name,
			"trading partner masterid": p.MasterID,
		}
		if len(p.Documents) == 0 {
			r.Rows = append(r.Rows, rowFromValues(r.Headers, base))
			continue
		}
		for _, d := range p.Documents {
			vals := d.values()
			for k, v := range base {
				vals[k] = v
			}
			r.Rows = append(r.Rows, rowFromValues(r.Headers, vals))
		}
	}
	return r
}

// BuildDocumentShares builds the document share table. Every document
// appears at least once: an unshared document gets one row with empty
// partner columns.
func BuildDocumentShares(docs []DocumentShare) *Report {
	r := &Report{Kind: DocumentShares, Headers: DocumentShares.Headers()}
	for _, ds := range docs {
		vals := ds.Doc.values()
		if len(ds.Partners) == 0 {
			r.Rows = append(r.Rows, rowFromValues(r.Headers, vals))
			continue
		}
		for _, p := range ds.Partners {
			vals["trading partner name"] = p.Name
			vals["trading partner masterid"] = p.MasterID
			r.Rows = append(r.Rows, rowFromValues(r.Headers, vals))
		}
	}
	return r
}

// BuildEventLog builds the event log table from the aggregated share
// events.
func BuildEventLog(events []Event) *Report {
	r := &Report{Kind: EventLog, Headers: EventLog.Headers()}
	for _, e := range events {
		vals := e.Doc.values()
		vals["share status"] = e.Status
		vals["trading partner masterid"] = e.Partner.MasterID
		vals["trading partner name"] = e.Partner.Name
		vals["recipient email address"] = e.Email
		vals["event time"] = e.EventTime
		vals["event type"] = e.EventType
		r.Rows = append(r.Rows, rowFromValues(r.Headers, vals))
	}
	return r
}

func rowFromValues(headers []string, vals map[string]string) []string {
	row := make([]string, len(headers))
	for i, h := range headers {
		row[i] = vals[h]
	}
	return row
}

// ParseDay parses an MM/DD/YYYY document date column. The zero time is
// returned for empty or unparseable values.
func ParseDay(s string) time.Time {
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
