package catalog

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
)

type manifestResponse struct {
	Latest   *latestPointers   `json:"latest"`
	Versions []json.RawMessage `json:"versions"`
}

type latestPointers struct {
	Release  string `json:"release"`
	Snapshot string `json:"snapshot"`
}

type manifestEntry struct {
	ID          *string `json:"id"`
	Type        *string `json:"type"`
	URL         *string `json:"url"`
	Time        *string `json:"time"`
	ReleaseTime *string `json:"releaseTime"`
}

// parseManifest turns a manifest document into a snapshot. A malformed
// document is an error; malformed entries are skipped with a warning.
func parseManifest(body []byte, log *zap.Logger) (*snapshot, error) {
	var resp manifestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if resp.Versions == nil {
		return nil, fmt.Errorf("decoding manifest: missing versions array")
	}

	byID := make(map[string]Version, len(resp.Versions))
	order := make([]string, 0, len(resp.Versions))
	for i, raw := range resp.Versions {
		v, err := parseEntry(raw)
		if err != nil {
			log.Warn("skipping manifest entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		if _, dup := byID[v.ID]; dup {
			log.Warn("duplicate manifest entry, keeping the last one", zap.String("id", v.ID))
		} else {
			order = append(order, v.ID)
		}
		byID[v.ID] = v
	}

	versions := make([]Version, 0, len(order))
	for _, id := range order {
		versions = append(versions, byID[id])
	}
	slices.SortStableFunc(versions, Version.Compare)

	var latest latestPointers
	if resp.Latest != nil {
		latest = *resp.Latest
	} else {
		log.Warn("manifest has no latest pointers")
	}
	return newSnapshot(versions, latest.Release, latest.Snapshot), nil
}

func parseEntry(raw json.RawMessage) (Version, error) {
	var e manifestEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Version{}, err
	}
	if e.ID == nil || e.Type == nil || e.URL == nil || e.Time == nil || e.ReleaseTime == nil {
		return Version{}, fmt.Errorf("missing required field in %s", string(raw))
	}

	kind, err := ParseKind(*e.Type)
	if err != nil {
		return Version{}, fmt.Errorf("%s: %w", *e.ID, err)
	}
	published, err := time.Parse(time.RFC3339, *e.Time)
	if err != nil {
		return Version{}, fmt.Errorf("%s: time: %w", *e.ID, err)
	}
	released, err := time.Parse(time.RFC3339, *e.ReleaseTime)
	if err != nil {
		return Version{}, fmt.Errorf("%s: releaseTime: %w", *e.ID, err)
	}

	return Version{
		ID:          *e.ID,
		Kind:        kind,
		URL:         *e.URL,
		Time:        published.UTC(),
		ReleaseTime: released.UTC(),
	}, nil
}
