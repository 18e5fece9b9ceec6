package reader

import (
	"errors"
	"strings"

	"github.com/hivetap/hivetap/internal/format"
	"github.com/hivetap/hivetap/pkg/types"
)

var rootAliasMap = map[string][]string{
	"HKEY_LOCAL_MACHINE":  {"HKLM"},
	"HKEY_CLASSES_ROOT":   {"HKCR"},
	"HKEY_CURRENT_USER":   {"HKCU"},
	"HKEY_USERS":          {"HKU"},
	"HKEY_CURRENT_CONFIG": {"HKCC"},
}

var rootAliasList = []string{
	"HKEY_LOCAL_MACHINE", "HKLM",
	"HKEY_CLASSES_ROOT", "HKCR",
	"HKEY_CURRENT_USER", "HKCU",
	"HKEY_USERS", "HKU",
	"HKEY_CURRENT_CONFIG", "HKCC",
}

// Find resolves a Windows-style path. Hive prefixes like HKLM are stripped,
// and a leading segment matching the root key's own name is consumed, so
// "HKLM\Software\Vendor", "Software\Vendor" and "\Software\Vendor" all reach
// the same key.
func (r *reader) Find(path string) (types.NodeID, error) {
	if err := r.ensureOpen(); err != nil {
		return 0, err
	}
	path = strings.TrimSpace(path)
	path = stripRootPrefix(path)
	segments := normalizePath(path)
	current := types.NodeID(r.head.RootCellOffset)
	if len(segments) == 0 {
		return current, nil
	}

	rootName, err := r.KeyName(current)
	if err != nil {
		return 0, err
	}
	if strings.EqualFold(segments[0], rootName) || aliasMatches(rootName, segments[0]) {
		segments = segments[1:]
	}

	for _, seg := range segments {
		child, err := r.GetChild(current, seg)
		if err != nil {
			return 0, err
		}
		current = child
	}
	return current, nil
}

// Walk performs a pre-order traversal from id. Revisited offsets are skipped
// so reference cycles in corrupt hives terminate, and recursion is capped by
// the configured tree depth limit.
func (r *reader) Walk(id types.NodeID, fn func(types.NodeID) error) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}
	if fn == nil {
		return errors.New("reader: nil walk callback")
	}
	visited := make(map[types.NodeID]struct{})
	return r.walk(id, fn, visited, 0)
}

func (r *reader) walk(id types.NodeID, fn func(types.NodeID) error, visited map[types.NodeID]struct{}, depth int) error {
	if depth > r.limits.MaxTreeDepth {
		return &types.Error{Kind: types.ErrKindInvalidRecord, Msg: "key tree deeper than limit"}
	}
	if _, seen := visited[id]; seen {
		r.recordDiag(types.Diagnostic{
			Kind:    types.ErrKindInvalidRecord,
			Offset:  uint32(id),
			Message: "key reference cycle",
		})
		return nil
	}
	visited[id] = struct{}{}

	if err := fn(id); err != nil {
		return err
	}
	nk, err := r.nk(id)
	if err != nil {
		return err
	}
	if nk.SubkeyCount == 0 || nk.SubkeyListOffset == format.InvalidOffset {
		return nil
	}
	list, err := r.subkeyList(nk.SubkeyListOffset, nk.SubkeyCount)
	if err != nil {
		return err
	}
	for _, off := range list {
		if err := r.walk(types.NodeID(off), fn, visited, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func normalizePath(path string) []string {
	if path == "" || path == `\` || path == "/" {
		return nil
	}
	path = strings.ReplaceAll(path, "/", `\`)
	path = strings.TrimPrefix(path, `\`)
	if path == "" {
		return nil
	}
	parts := strings.Split(path, `\`)
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func stripRootPrefix(path string) string {
	upper := strings.ToUpper(path)
	for _, alias := range rootAliasList {
		if upper == alias {
			return ""
		}
		prefix := alias + `\`
		if strings.HasPrefix(upper, prefix) {
			return path[len(alias)+1:]
		}
	}
	return path
}

func aliasMatches(rootName, seg string) bool {
	for canon, aliases := range rootAliasMap {
		if !strings.EqualFold(rootName, canon) {
			continue
		}
		for _, alias := range aliases {
			if strings.EqualFold(seg, alias) {
				return true
			}
		}
		break
	}
	return false
}
