package realtime

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"gorm.io/gorm"
)

type tabler interface {
	TableName() string
}

// Plugin turns gorm writes on registered models into change events. Writes
// made with an Outbox in the statement context are held until the caller
// flushes them after commit; other writes are published immediately.
type Plugin struct {
	hub    *Hub
	tables map[string]bool
}

func NewPlugin(hub *Hub, models ...interface{}) *Plugin {
	p := &Plugin{hub: hub, tables: make(map[string]bool)}
	for _, m := range models {
		if t, ok := m.(tabler); ok {
			p.tables[t.TableName()] = true
		}
	}
	return p
}

func (p *Plugin) Name() string {
	return "realtime"
}

func (p *Plugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Create().After("gorm:create").Register("realtime:after_create", p.emit(OpInsert)); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").Register("realtime:after_update", p.emit(OpUpdate)); err != nil {
		return err
	}
	return db.Callback().Delete().After("gorm:delete").Register("realtime:after_delete", p.emit(OpDelete))
}

func (p *Plugin) emit(op Op) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.Error != nil || db.Statement == nil || db.Statement.Schema == nil {
			return
		}
		if db.RowsAffected == 0 {
			return
		}
		table := db.Statement.Schema.Table
		if !p.tables[table] {
			return
		}

		events := p.collect(db, table, op)
		box, held := OutboxFrom(db.Statement.Context)
		for _, e := range events {
			if held {
				box.Add(e)
			} else {
				p.hub.Publish(e)
			}
		}
	}
}

func (p *Plugin) collect(db *gorm.DB, table string, op Op) []ChangeEvent {
	rv := db.Statement.ReflectValue
	now := time.Now().UTC()

	var rows []reflect.Value
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			rows = append(rows, reflect.Indirect(rv.Index(i)))
		}
	case reflect.Struct:
		rows = append(rows, rv)
	default:
		return nil
	}

	field := db.Statement.Schema.PrioritizedPrimaryField
	events := make([]ChangeEvent, 0, len(rows))
	for _, row := range rows {
		if row.Kind() != reflect.Struct {
			continue
		}
		e := ChangeEvent{Table: table, Op: op, At: now}
		if field != nil {
			if v, zero := field.ValueOf(db.Statement.Context, row); !zero {
				e.ID = fmt.Sprint(v)
			}
		}
		if e.ID == "" {
			// keyless statements are reported once as a collection change
			if len(rows) == 1 {
				events = append(events, e)
			}
			continue
		}
		if row.CanInterface() {
			if data, err := json.Marshal(row.Interface()); err == nil {
				e.Record = data
			}
		}
		events = append(events, e)
	}
	return events
}
