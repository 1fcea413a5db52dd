package resumes

import "time"

// view flattens a resume into the document shape clients edit: content keys at the top level
// next to the record's own fields.
func view(r Resume, withBookkeeping bool) map[string]any {
	out := make(map[string]any, len(r.Content)+8)
	for k, v := range r.Content {
		out[k] = v
	}
	out["_id"] = r.ID
	out["userId"] = r.UserID
	out["title"] = r.Title
	out["public"] = r.Public
	if withBookkeeping {
		out["version"] = r.Version
		out["createdAt"] = r.CreatedAt.UTC().Format(time.RFC3339)
		out["updatedAt"] = r.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

// toResponse is the full projection used after writes, for public reads and for listings.
func toResponse(r Resume) map[string]any {
	return view(r, true)
}

// toPrivateResponse strips version and raw timestamps.
func toPrivateResponse(r Resume) map[string]any {
	return view(r, false)
}

func toListResponse(list []Resume) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, r := range list {
		out = append(out, toResponse(r))
	}
	return out
}
