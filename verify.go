package mmdb

import "fmt"

// Verify walks every network the search tree resolves and fully decodes
// its record, surfacing any structural corruption (a bad control byte, an
// out-of-bounds pointer, a pointer chain, a truncated container) that a
// plain Open would not have noticed, since Open only parses the metadata
// section.
func (r *Reader) Verify() error {
	for res := range r.Networks() {
		if err := res.Err(); err != nil {
			return fmt.Errorf("mmdb: verifying search tree: %w", err)
		}
		if _, err := res.GetEntryDataList(); err != nil {
			return fmt.Errorf("mmdb: verifying record for %s: %w", res.Prefix(), err)
		}
	}
	return nil
}
