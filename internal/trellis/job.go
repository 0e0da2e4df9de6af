package trellis

import (
	"strings"
	"time"
)

// ShareJob is one trellis-shares job record: a single document pushed to a
// single trading partner.
type ShareJob struct {
	ID     string `json:"_id"`
	Config struct {
		Src     string `json:"src"`
		Chroot  string `json:"chroot"`
		Doctype string `json:"doctype"`
	} `json:"config"`
	Updates map[string]JobUpdate `json:"updates"`
}

// JobUpdate is one status transition in a job's lifecycle.
type JobUpdate struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// PartnerPath derives the owning partner's resource path from the job's
// chroot by truncating the last two path segments.
func (j *ShareJob) PartnerPath() string {
	parts := strings.Split(j.Config.Chroot, "/")
	if len(parts) <= 2 {
		return ""
	}
	return strings.Join(parts[:len(parts)-2], "/")
}

// DocCollection maps the job's doctype to a document collection name. Both
// doctype spellings seen in stored jobs ("audit" and "fsqa-audits") resolve
// to the audit collection. Returns false for an unknown doctype.
func (j *ShareJob) DocCollection() (string, bool) {
	switch j.Config.Doctype {
	case "cois":
		return CollectionCois, true
	case "audit", "fsqa-audits":
		return CollectionAudits, true
	}
	return "", false
}

// EarliestUpdate returns the timestamp of the earliest update whose status
// matches, or false if the job has none.
func (j *ShareJob) EarliestUpdate(status string) (time.Time, bool) {
	var earliest time.Time
	for _, u := range j.Updates {
		if u.Status != status {
			continue
		}
		t, err := time.Parse(time.RFC3339, u.Time)
		if err != nil {
			continue
		}
		if earliest.IsZero() || t.Before(earliest) {
			earliest = t
		}
	}
	return earliest, !earliest.IsZero()
}
