package kit

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/groundtruth"
	pkgerrors "github.com/docentkit/docentkit-backend/internal/pkg/errors"
)

// SourceRef points from a Kit item into one Ground-Truth collection. It is a
// tagged value parsed once at the edge; the wire form is "procedures[2]".
type SourceRef struct {
	Collection groundtruth.Collection
	Index      int
}

var sourceRefRE = regexp.MustCompile(`^([a-zA-Z]+)\[(\d+)\]$`)

// ParseSourceRef parses the wire form. Unknown collection tags and negative
// indices are invalid-argument errors; range is checked separately against a
// concrete Ground Truth via InRange.
func ParseSourceRef(s string) (SourceRef, error) {
	m := sourceRefRE.FindStringSubmatch(s)
	if m == nil {
		return SourceRef{}, fmt.Errorf("malformed sourceRef %q: %w", s, pkgerrors.ErrInvalidArgument)
	}
	col := groundtruth.Collection(m[1])
	known := false
	for _, c := range groundtruth.Collections() {
		if c == col {
			known = true
			break
		}
	}
	if !known {
		return SourceRef{}, fmt.Errorf("unknown sourceRef collection %q: %w", m[1], pkgerrors.ErrInvalidArgument)
	}
	idx, err := strconv.Atoi(m[2])
	if err != nil || idx < 0 {
		return SourceRef{}, fmt.Errorf("bad sourceRef index %q: %w", m[2], pkgerrors.ErrInvalidArgument)
	}
	return SourceRef{Collection: col, Index: idx}, nil
}

func (r SourceRef) String() string {
	return fmt.Sprintf("%s[%d]", r.Collection, r.Index)
}

// InRange reports whether the reference resolves to a real item of gt.
func (r SourceRef) InRange(gt groundtruth.GroundTruth) bool {
	n := gt.CollectionLen(r.Collection)
	return n >= 0 && r.Index >= 0 && r.Index < n
}

// Key is a stable identity for set-membership counting (coverage score).
func (r SourceRef) Key() string {
	return r.String()
}

func (r SourceRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *SourceRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		return fmt.Errorf("empty sourceRef: %w", pkgerrors.ErrInvalidArgument)
	}
	parsed, err := ParseSourceRef(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
