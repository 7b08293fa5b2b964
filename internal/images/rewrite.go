package images

import (
	"strings"

	"github.com/TobiSchelling/auditreports/internal/audit"
)

// UpdateRecords points each record's image fields at the local copies listed
// in downloaded. One image becomes a scalar path, several become a
// comma-joined string. Fields and records without downloads are returned
// unchanged.
func UpdateRecords(records []audit.Record, downloaded []Downloaded) []audit.Record {
	type key struct{ record, field string }
	paths := make(map[key][]string)
	for _, d := range downloaded {
		k := key{d.RecordID, d.FieldName}
		paths[k] = append(paths[k], d.LocalPath)
	}

	out := make([]audit.Record, len(records))
	for i, rec := range records {
		for field := range rec.Fields {
			local, ok := paths[key{rec.ID, field}]
			if !ok {
				continue
			}
			if len(local) == 1 {
				rec = rec.WithField(field, local[0])
			} else {
				rec = rec.WithField(field, strings.Join(local, ", "))
			}
		}
		out[i] = rec
	}
	return out
}
