package scenefile

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/fsanges/master-of-puppets/internal/scene"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever the file layout changes. Files written
// by a newer tool are refused rather than misread.
const schemaVersion = 1

// ErrSchemaMismatch indicates the scene file was written with a different
// schema version.
var ErrSchemaMismatch = errors.New("scene file schema mismatch")

// Save writes the graph to path atomically: the snapshot lands in a
// sibling temp file that replaces the target only after a clean commit.
func Save(ctx context.Context, path string, m *scene.Memory) error {
	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("save scene: %w", err)
	}
	if err := writeSnapshot(ctx, tmp, m.Snapshot()); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("save scene: %w", err)
	}
	return nil
}

func writeSnapshot(ctx context.Context, path string, snap *scene.Snapshot) error {
	db, err := open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save scene: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("save scene: create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("save scene: record schema version: %w", err)
	}

	for _, node := range snap.Nodes {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO nodes (name, type, parent, child_index) VALUES (?, ?, ?, ?)",
			node.Name, string(node.Type), node.Parent, node.ChildIndex,
		); err != nil {
			return fmt.Errorf("save scene: node %s: %w", node.Name, err)
		}
		for _, a := range node.Attrs {
			value, err := encodeValue(a.Value)
			if err != nil {
				return fmt.Errorf("save scene: %s.%s: %w", node.Name, a.Name, err)
			}
			def, err := encodeValue(a.Default)
			if err != nil {
				return fmt.Errorf("save scene: %s.%s: %w", node.Name, a.Name, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO attrs (node, name, type, value, def, locked, keyable, channel_box, custom) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
				node.Name, a.Name, a.Type.String(), value, def,
				boolInt(a.Locked), boolInt(a.Keyable), boolInt(a.ChannelBox), boolInt(a.Custom),
			); err != nil {
				return fmt.Errorf("save scene: attr %s.%s: %w", node.Name, a.Name, err)
			}
		}
	}
	for _, conn := range snap.Connections {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO connections (src_node, src_attr, dst_node, dst_attr) VALUES (?, ?, ?, ?)",
			conn.SrcNode, conn.SrcAttr, conn.DstNode, conn.DstAttr,
		); err != nil {
			return fmt.Errorf("save scene: connection %s.%s: %w", conn.DstNode, conn.DstAttr, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save scene: commit: %w", err)
	}
	return nil
}

// Load reads a scene file back into a graph. A missing file surfaces the
// underlying fs error so callers can offer to create a fresh scene.
func Load(ctx context.Context, path string) (*scene.Memory, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("load scene: %w", err)
	}
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := checkVersion(ctx, db); err != nil {
		return nil, err
	}
	snap, err := readSnapshot(ctx, db)
	if err != nil {
		return nil, err
	}
	m, err := scene.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("load scene: %w", err)
	}
	return m, nil
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open scene file: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	return db, nil
}

func checkVersion(ctx context.Context, db *sql.DB) error {
	var version int
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("load scene: read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: file has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func readSnapshot(ctx context.Context, db *sql.DB) (*scene.Snapshot, error) {
	snap := &scene.Snapshot{}
	index := make(map[string]int)

	rows, err := db.QueryContext(ctx, "SELECT name, type, parent, child_index FROM nodes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("load scene: nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec scene.NodeRecord
		var typ string
		if err := rows.Scan(&rec.Name, &typ, &rec.Parent, &rec.ChildIndex); err != nil {
			return nil, fmt.Errorf("load scene: nodes: %w", err)
		}
		rec.Type = scene.NodeType(typ)
		index[rec.Name] = len(snap.Nodes)
		snap.Nodes = append(snap.Nodes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load scene: nodes: %w", err)
	}

	attrRows, err := db.QueryContext(ctx,
		"SELECT node, name, type, value, def, locked, keyable, channel_box, custom FROM attrs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("load scene: attrs: %w", err)
	}
	defer attrRows.Close()
	for attrRows.Next() {
		var (
			nodeName, typName, value, def       string
			rec                                 scene.AttrRecord
			locked, keyable, channelBox, custom int
		)
		if err := attrRows.Scan(&nodeName, &rec.Name, &typName, &value, &def, &locked, &keyable, &channelBox, &custom); err != nil {
			return nil, fmt.Errorf("load scene: attrs: %w", err)
		}
		typ, err := scene.ParseAttrType(typName)
		if err != nil {
			return nil, fmt.Errorf("load scene: attr %s.%s: %w", nodeName, rec.Name, err)
		}
		rec.Type = typ
		if rec.Value, err = decodeValue(typ, value); err != nil {
			return nil, fmt.Errorf("load scene: attr %s.%s: %w", nodeName, rec.Name, err)
		}
		if rec.Default, err = decodeValue(typ, def); err != nil {
			return nil, fmt.Errorf("load scene: attr %s.%s: %w", nodeName, rec.Name, err)
		}
		rec.Locked = locked != 0
		rec.Keyable = keyable != 0
		rec.ChannelBox = channelBox != 0
		rec.Custom = custom != 0

		i, ok := index[nodeName]
		if !ok {
			return nil, fmt.Errorf("load scene: attr %s.%s references unknown node", nodeName, rec.Name)
		}
		snap.Nodes[i].Attrs = append(snap.Nodes[i].Attrs, rec)
	}
	if err := attrRows.Err(); err != nil {
		return nil, fmt.Errorf("load scene: attrs: %w", err)
	}

	connRows, err := db.QueryContext(ctx,
		"SELECT src_node, src_attr, dst_node, dst_attr FROM connections ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("load scene: connections: %w", err)
	}
	defer connRows.Close()
	for connRows.Next() {
		var conn scene.Connection
		if err := connRows.Scan(&conn.SrcNode, &conn.SrcAttr, &conn.DstNode, &conn.DstAttr); err != nil {
			return nil, fmt.Errorf("load scene: connections: %w", err)
		}
		snap.Connections = append(snap.Connections, conn)
	}
	if err := connRows.Err(); err != nil {
		return nil, fmt.Errorf("load scene: connections: %w", err)
	}
	return snap, nil
}

// Lock returns an advisory lock guarding path. Callers TryLock before a
// load-operate-save cycle and Unlock afterwards.
func Lock(path string) *flock.Flock {
	return flock.New(path + ".lock")
}

func encodeValue(v scene.Value) (string, error) {
	switch v.Type {
	case scene.TypeBool:
		return strconv.FormatBool(v.Bool), nil
	case scene.TypeFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64), nil
	case scene.TypeString:
		return v.Str, nil
	case scene.TypeVector:
		data, err := json.Marshal(v.Vec)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown value type %v", v.Type)
	}
}

func decodeValue(typ scene.AttrType, text string) (scene.Value, error) {
	switch typ {
	case scene.TypeBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return scene.Value{}, err
		}
		return scene.BoolValue(b), nil
	case scene.TypeFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return scene.Value{}, err
		}
		return scene.FloatValue(f), nil
	case scene.TypeString:
		return scene.StringValue(text), nil
	case scene.TypeVector:
		var vec scene.Vector3
		if err := json.Unmarshal([]byte(text), &vec); err != nil {
			return scene.Value{}, err
		}
		return scene.Value{Type: scene.TypeVector, Vec: vec}, nil
	default:
		return scene.Value{}, fmt.Errorf("unknown attribute type %v", typ)
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
