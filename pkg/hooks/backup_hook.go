package hooks

import (
	"context"
	"reflect"
)

const (
	// BackupHookPriority runs the backup right after the audit hook
	BackupHookPriority = 10

	backupKey = "backup.state"
)

// StateBackupHook snapshots the state bag before a migration and restores it
// exactly on rollback
type StateBackupHook struct {
	BaseHook
}

// NewStateBackupHook creates a state backup hook
func NewStateBackupHook() *StateBackupHook {
	return &StateBackupHook{
		BaseHook: BaseHook{HookName: "state-backup", HookPriority: BackupHookPriority},
	}
}

func (h *StateBackupHook) Before(ctx context.Context, mc *MigrationContext) (bool, error) {
	mc.metadata()[backupKey] = CopyState(mc.State)
	return true, nil
}

func (h *StateBackupHook) After(ctx context.Context, mc *MigrationContext) error {
	delete(mc.metadata(), backupKey)
	return nil
}

// Rollback restores the snapshot into the live map so holders of the map see
// the restored state
func (h *StateBackupHook) Rollback(ctx context.Context, mc *MigrationContext) error {
	backup, ok := mc.metadata()[backupKey].(map[string]interface{})
	if !ok {
		return nil
	}
	if mc.State == nil {
		mc.State = make(map[string]interface{})
	}

	for k := range mc.State {
		delete(mc.State, k)
	}
	for k, v := range CopyState(backup) {
		mc.State[k] = v
	}
	return nil
}

// CopyState deep-copies a state bag. Maps, slices, arrays, pointers,
// interface values and exported struct fields are copied recursively;
// unexported struct fields are copied by value. Values reachable through
// several paths, cycles included, are copied once and stay shared within the
// copy.
func CopyState(state map[string]interface{}) map[string]interface{} {
	if state == nil {
		return nil
	}
	c := stateCopier{seen: make(map[visit]reflect.Value)}
	out := make(map[string]interface{}, len(state))
	for k, v := range state {
		if v == nil {
			out[k] = nil
			continue
		}
		out[k] = c.copy(reflect.ValueOf(v)).Interface()
	}
	return out
}

// visit identifies a reference value already copied
type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type stateCopier struct {
	seen map[visit]reflect.Value
}

func (c stateCopier) copy(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		key := visit{ptr: v.Pointer(), typ: v.Type()}
		if done, ok := c.seen[key]; ok {
			return done
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		c.seen[key] = out
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), c.copy(iter.Value()))
		}
		return out

	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		key := visit{ptr: v.Pointer(), typ: v.Type(), len: v.Len()}
		if done, ok := c.seen[key]; ok {
			return done
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		c.seen[key] = out
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(c.copy(v.Index(i)))
		}
		return out

	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(c.copy(v.Index(i)))
		}
		return out

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if field := out.Field(i); field.CanSet() {
				field.Set(c.copy(v.Field(i)))
			}
		}
		return out

	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		key := visit{ptr: v.Pointer(), typ: v.Type()}
		if done, ok := c.seen[key]; ok {
			return done
		}
		out := reflect.New(v.Elem().Type())
		c.seen[key] = out
		out.Elem().Set(c.copy(v.Elem()))
		return out

	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(c.copy(v.Elem()))
		return out

	default:
		return v
	}
}
