package hive

import (
	"fmt"
	"sort"
	"time"
)

// KeyInfo is listing-friendly information about a registry key.
type KeyInfo struct {
	Name      string
	SubkeyN   int
	ValueN    int
	Path      string
	LastWrite time.Time
}

// ValueInfo carries a value's metadata plus its data decoded per type.
type ValueInfo struct {
	Name       string
	Type       string
	Size       int
	Truncated  bool
	Data       []byte
	StringVal  string   // REG_SZ / REG_EXPAND_SZ
	StringVals []string // REG_MULTI_SZ
	DWordVal   uint32   // REG_DWORD / REG_DWORD_BE
	QWordVal   uint64   // REG_QWORD
}

// GetHiveInfo returns base block metadata for the hive at hivePath.
func GetHiveInfo(hivePath string) (HiveInfo, error) {
	r, err := Open(hivePath, OpenOptions{})
	if err != nil {
		return HiveInfo{}, fmt.Errorf("open hive: %w", err)
	}
	defer r.Close()
	return r.Info(), nil
}

// GetKeyDetail returns full NK record metadata for a key path.
func GetKeyDetail(hivePath, keyPath string) (KeyDetail, error) {
	r, err := Open(hivePath, OpenOptions{})
	if err != nil {
		return KeyDetail{}, fmt.Errorf("open hive: %w", err)
	}
	defer r.Close()
	return GetKeyDetailWithReader(r, keyPath)
}

// GetKeyDetailWithReader is GetKeyDetail against an already-open reader,
// avoiding a re-open per call.
func GetKeyDetailWithReader(r Reader, keyPath string) (KeyDetail, error) {
	node, err := resolve(r, keyPath)
	if err != nil {
		return KeyDetail{}, err
	}
	return r.DetailKey(node)
}

// ListKeys lists keys under keyPath ("" for the root), recursing to maxDepth
// when recursive is set (maxDepth 0 means unlimited). Results are sorted by
// path.
func ListKeys(hivePath, keyPath string, recursive bool, maxDepth int) ([]KeyInfo, error) {
	r, err := Open(hivePath, OpenOptions{})
	if err != nil {
		return nil, fmt.Errorf("open hive: %w", err)
	}
	defer r.Close()

	node, err := resolve(r, keyPath)
	if err != nil {
		return nil, err
	}
	keys, err := listKeysRecursive(r, node, keyPath, recursive, maxDepth, 0)
	if err != nil {
		return nil, err
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Path < keys[j].Path })
	return keys, nil
}

func listKeysRecursive(r Reader, node NodeID, parentPath string, recursive bool, maxDepth, depth int) ([]KeyInfo, error) {
	children, err := r.Subkeys(node)
	if err != nil {
		return nil, err
	}
	keys := make([]KeyInfo, 0, len(children))
	for _, child := range children {
		meta, err := r.StatKey(child)
		if err != nil {
			continue
		}
		childPath := meta.Name
		if parentPath != "" {
			childPath = parentPath + `\` + meta.Name
		}
		keys = append(keys, KeyInfo{
			Name:      meta.Name,
			SubkeyN:   meta.SubkeyN,
			ValueN:    meta.ValueN,
			Path:      childPath,
			LastWrite: meta.LastWrite,
		})
		if recursive && (maxDepth == 0 || depth < maxDepth-1) {
			childKeys, err := listKeysRecursive(r, child, childPath, true, maxDepth, depth+1)
			if err != nil {
				continue
			}
			keys = append(keys, childKeys...)
		}
	}
	return keys, nil
}

// ListValues lists all values at keyPath.
func ListValues(hivePath, keyPath string) ([]ValueInfo, error) {
	r, err := Open(hivePath, OpenOptions{Tolerant: true})
	if err != nil {
		return nil, fmt.Errorf("open hive: %w", err)
	}
	defer r.Close()
	return ListValuesWithReader(r, keyPath)
}

// ListValuesWithReader lists all values at keyPath using an existing reader.
func ListValuesWithReader(r Reader, keyPath string) ([]ValueInfo, error) {
	node, err := resolve(r, keyPath)
	if err != nil {
		return nil, err
	}
	valueIDs, err := r.Values(node)
	if err != nil {
		return nil, fmt.Errorf("list values: %w", err)
	}
	values := make([]ValueInfo, 0, len(valueIDs))
	for _, id := range valueIDs {
		info, err := describeValue(r, id)
		if err != nil {
			continue
		}
		values = append(values, info)
	}
	return values, nil
}

// GetValue retrieves one value from a key.
func GetValue(hivePath, keyPath, valueName string) (*ValueInfo, error) {
	r, err := Open(hivePath, OpenOptions{Tolerant: true})
	if err != nil {
		return nil, fmt.Errorf("open hive: %w", err)
	}
	defer r.Close()

	node, err := resolve(r, keyPath)
	if err != nil {
		return nil, err
	}
	id, err := r.GetValue(node, valueName)
	if err != nil {
		return nil, fmt.Errorf("value %q: %w", valueName, err)
	}
	info, err := describeValue(r, id)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func resolve(r Reader, keyPath string) (NodeID, error) {
	if keyPath == "" {
		node, err := r.Root()
		if err != nil {
			return 0, fmt.Errorf("root key: %w", err)
		}
		return node, nil
	}
	node, err := r.Find(keyPath)
	if err != nil {
		return 0, fmt.Errorf("key %q: %w", keyPath, err)
	}
	return node, nil
}

func describeValue(r Reader, id ValueID) (ValueInfo, error) {
	meta, err := r.StatValue(id)
	if err != nil {
		return ValueInfo{}, err
	}
	info := ValueInfo{
		Name:      meta.Name,
		Type:      meta.Type.String(),
		Size:      meta.Size,
		Truncated: meta.Truncated,
	}
	if data, err := r.ValueBytes(id, ReadOptions{}); err == nil {
		info.Data = data
	}
	switch meta.Type {
	case REG_SZ, REG_EXPAND_SZ:
		if v, err := r.ValueString(id, ReadOptions{}); err == nil {
			info.StringVal = v
		}
	case REG_MULTI_SZ:
		if v, err := r.ValueStrings(id, ReadOptions{}); err == nil {
			info.StringVals = v
		}
	case REG_DWORD, REG_DWORD_BE:
		if v, err := r.ValueDWORD(id); err == nil {
			info.DWordVal = v
		}
	case REG_QWORD:
		if v, err := r.ValueQWORD(id); err == nil {
			info.QWordVal = v
		}
	}
	return info, nil
}
