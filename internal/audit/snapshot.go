package audit

import (
	"encoding/json"

	"github.com/danielobanda/treasury-backend/pkg/types"
)

// Snapshot captures an entity's current field values as a jsonb document.
// A nil input yields a nil snapshot, which the log stores as SQL NULL.
func Snapshot(entity any) types.JSONMap {
	if entity == nil {
		return nil
	}

	raw, err := json.Marshal(entity)
	if err != nil {
		return nil
	}

	var snapshot types.JSONMap
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil
	}
	return snapshot
}
