package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/wesm/flow/internal/model"
	"github.com/wesm/flow/internal/store"
	"github.com/wesm/flow/internal/timeutil"
)

type dialect int

const (
	sqlite dialect = iota
	postgres
)

func (d dialect) String() string {
	if d == postgres {
		return "postgres"
	}
	return "sqlite"
}

// rebind rewrites ? placeholders into the dialect's form.
func (d dialect) rebind(query string) string {
	if d != postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// entityTable maps a snapshot array to a table. Every row stores
// the element's JSON in data plus the listed columns.
type entityTable struct {
	name string
	key  string
	cols []string
}

var (
	tasksTable = entityTable{
		name: "tasks",
		key:  "tasks",
		cols: []string{"title", "completed", "priority", "due_date", "completed_at"},
	}
	habitsTable = entityTable{
		name: "habits",
		key:  "habits",
		cols: []string{"name", "archived"},
	}
	focusTable = entityTable{
		name: "focus_items",
		key:  "focus_items",
		cols: []string{"date", "completed"},
	}
	entityTables = []entityTable{tasksTable, habitsTable, focusTable}
)

type entityRow struct {
	id   int64
	cols []any
	data string
}

// readSnapshot assembles the document from the documents table
// and the entity tables.
func readSnapshot(
	ctx context.Context, q querier, d dialect,
) (*model.Snapshot, error) {
	doc := map[string]json.RawMessage{}

	rows, err := q.QueryContext(ctx, "SELECT key, data FROM documents")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, data string
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc[key] = json.RawMessage(data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	for _, t := range entityTables {
		list, err := readEntities(ctx, q, t)
		if err != nil {
			return nil, err
		}
		doc[t.key] = list
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s store: %v", store.ErrCorrupt, d, err)
	}
	s, err := model.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s store: %v", store.ErrCorrupt, d, err)
	}
	return s, nil
}

func readEntities(
	ctx context.Context, q querier, t entityTable,
) (json.RawMessage, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT data FROM "+t.name+" ORDER BY position, id",
	)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", t.name, err)
	}
	defer rows.Close()

	list := []json.RawMessage{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", t.name, err)
		}
		list = append(list, json.RawMessage(data))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", t.name, err)
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", store.ErrCorrupt, t.name, err)
	}
	return raw, nil
}

// writeSnapshot stores s, touching only rows whose content or
// position changed.
func writeSnapshot(tx *sql.Tx, d dialect, s *model.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	now := timeutil.Format(time.Now().UTC())

	upsertDoc := d.rebind(`INSERT INTO documents (key, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE
		SET data = excluded.data, updated_at = excluded.updated_at
		WHERE documents.data <> excluded.data`)

	var docErr error
	gjson.ParseBytes(data).ForEach(func(k, v gjson.Result) bool {
		switch k.String() {
		case tasksTable.key, habitsTable.key, focusTable.key:
			return true
		}
		if _, err := tx.Exec(upsertDoc, k.String(), v.Raw, now); err != nil {
			docErr = fmt.Errorf("writing document %s: %w", k.String(), err)
			return false
		}
		return true
	})
	if docErr != nil {
		return docErr
	}

	taskRows := make([]entityRow, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		r, err := newRow(t.ID, t,
			t.Title, t.Completed, t.Priority, t.DueDate, t.CompletedAt)
		if err != nil {
			return err
		}
		taskRows = append(taskRows, r)
	}
	habitRows := make([]entityRow, 0, len(s.Habits))
	for _, h := range s.Habits {
		r, err := newRow(h.ID, h, h.Name, h.Archived)
		if err != nil {
			return err
		}
		habitRows = append(habitRows, r)
	}
	focusRows := make([]entityRow, 0, len(s.FocusItems))
	for _, f := range s.FocusItems {
		r, err := newRow(f.ID, f, f.Date, f.Completed)
		if err != nil {
			return err
		}
		focusRows = append(focusRows, r)
	}

	if err := syncTable(tx, d, tasksTable, taskRows); err != nil {
		return err
	}
	if err := syncTable(tx, d, habitsTable, habitRows); err != nil {
		return err
	}
	return syncTable(tx, d, focusTable, focusRows)
}

func newRow(id int64, v any, cols ...any) (entityRow, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return entityRow{}, fmt.Errorf("encoding row %d: %w", id, err)
	}
	return entityRow{id: id, cols: cols, data: string(data)}, nil
}

// syncTable makes the table match rows: new and changed rows are
// upserted, rows whose id disappeared are deleted.
func syncTable(
	tx *sql.Tx, d dialect, t entityTable, rows []entityRow,
) error {
	type stored struct {
		position int
		data     string
	}
	existing := map[int64]stored{}
	res, err := tx.Query("SELECT id, position, data FROM " + t.name)
	if err != nil {
		return fmt.Errorf("querying %s: %w", t.name, err)
	}
	for res.Next() {
		var id int64
		var st stored
		if err := res.Scan(&id, &st.position, &st.data); err != nil {
			res.Close()
			return fmt.Errorf("scanning %s: %w", t.name, err)
		}
		existing[id] = st
	}
	res.Close()
	if err := res.Err(); err != nil {
		return fmt.Errorf("iterating %s: %w", t.name, err)
	}

	upsert := d.rebind(upsertSQL(t))
	for pos, r := range rows {
		if st, ok := existing[r.id]; ok {
			delete(existing, r.id)
			if st.position == pos && st.data == r.data {
				continue
			}
		}
		args := make([]any, 0, len(r.cols)+3)
		args = append(args, r.id, pos)
		args = append(args, r.cols...)
		args = append(args, r.data)
		if _, err := tx.Exec(upsert, args...); err != nil {
			return fmt.Errorf("writing %s %d: %w", t.name, r.id, err)
		}
	}

	del := d.rebind("DELETE FROM " + t.name + " WHERE id = ?")
	for id := range existing {
		if _, err := tx.Exec(del, id); err != nil {
			return fmt.Errorf("deleting %s %d: %w", t.name, id, err)
		}
	}
	return nil
}

func upsertSQL(t entityTable) string {
	cols := append([]string{"id", "position"}, t.cols...)
	cols = append(cols, "data")
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	sets := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		sets = append(sets, c+" = excluded."+c)
	}
	return "INSERT INTO " + t.name +
		" (" + strings.Join(cols, ", ") + ") VALUES (" + marks + ")" +
		" ON CONFLICT (id) DO UPDATE SET " + strings.Join(sets, ", ")
}
