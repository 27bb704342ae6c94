// Package dbstore is the SQLite-backed state store, using GORM. It gives
// the host durable named keys, contract records, issued references, and
// the event log; sessions map onto database transactions.
package dbstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ledgervm/vm/context"
	"github.com/ledgervm/vm/types"
)

const defaultDBPath = "./ledger.db"

func init() {
	context.Register(context.DBStoreType, func(params map[string]any) (context.Store, error) {
		return NewStore(params)
	})
}

// DBMeta is the single-row table carrying block info and the reference
// issuance counter.
type DBMeta struct {
	ID        uint `gorm:"primaryKey"`
	Height    uint64
	BlockTime uint64
	URefNonce uint64
}

func (DBMeta) TableName() string { return "meta" }

// DBNamedKey is one name→key binding in an owner's namespace.
type DBNamedKey struct {
	gorm.Model
	Owner    string `gorm:"column:owner;not null;uniqueIndex:idx_owner_name,priority:1;size:80"`
	Name     string `gorm:"column:name;not null;uniqueIndex:idx_owner_name,priority:2;size:255"`
	KeyBytes []byte `gorm:"column:key_bytes;type:blob;not null"`
}

func (DBNamedKey) TableName() string { return "named_keys" }

// DBContract is one stored contract record, serialized with bytesrepr.
type DBContract struct {
	gorm.Model
	Address string `gorm:"column:address;not null;unique;index;size:80"`
	Record  []byte `gorm:"column:record;type:blob;not null"`
}

func (DBContract) TableName() string { return "contracts" }

// DBURef is one issued capability reference.
type DBURef struct {
	gorm.Model
	Address string `gorm:"column:address;not null;unique;index;size:66"`
	Rights  uint8  `gorm:"column:rights;not null"`
}

func (DBURef) TableName() string { return "urefs" }

// DBEvent is one host-side event log entry.
type DBEvent struct {
	gorm.Model
	Source  string `gorm:"column:source;not null;index;size:80"`
	Name    string `gorm:"column:event_name;not null;index;size:255"`
	Payload []byte `gorm:"column:payload;type:blob"`
}

func (DBEvent) TableName() string { return "events" }

// ops implements context.Ops over either the root handle or a
// transaction.
type ops struct {
	db *gorm.DB
}

// Store is the SQLite-backed context.Store implementation.
type Store struct {
	ops
}

// NewStore opens (or creates) the database at params["db_path"] and
// migrates the schema.
func NewStore(params map[string]any) (*Store, error) {
	dbPath := defaultDBPath
	if params != nil {
		if path, ok := params["db_path"].(string); ok && path != "" {
			dbPath = path
		}
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&DBMeta{}, &DBNamedKey{}, &DBContract{}, &DBURef{}, &DBEvent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	slog.Info("opened ledger store", "path", dbPath)
	return &Store{ops: ops{db: db}}, nil
}

// Begin opens a session backed by a database transaction.
func (s *Store) Begin() (context.Session, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	return &session{ops: ops{db: tx}}, nil
}

type session struct {
	ops
	done bool
}

func (s *session) Commit() error {
	if s.done {
		return fmt.Errorf("session already finished")
	}
	s.done = true
	return s.db.Commit().Error
}

func (s *session) Rollback() error {
	if s.done {
		return fmt.Errorf("session already finished")
	}
	s.done = true
	return s.db.Rollback().Error
}

func (o ops) meta() (DBMeta, error) {
	meta := DBMeta{ID: 1}
	err := o.db.Where(DBMeta{ID: 1}).FirstOrCreate(&meta).Error
	return meta, err
}

func (o ops) BlockHeight() uint64 {
	meta, err := o.meta()
	if err != nil {
		slog.Error("failed to load meta row", "err", err)
		return 0
	}
	return meta.Height
}

func (o ops) BlockTime() types.BlockTime {
	meta, err := o.meta()
	if err != nil {
		slog.Error("failed to load meta row", "err", err)
		return 0
	}
	return types.BlockTime(meta.BlockTime)
}

func (o ops) SetBlockInfo(height uint64, time types.BlockTime) error {
	meta, err := o.meta()
	if err != nil {
		return err
	}
	meta.Height = height
	meta.BlockTime = uint64(time)
	return o.db.Save(&meta).Error
}

func (o ops) NamedKeys(owner types.Key) (types.NamedKeys, error) {
	var rows []DBNamedKey
	if err := o.db.Where("owner = ?", context.StorageID(owner)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load named keys: %w", err)
	}
	nk := make(types.NamedKeys, len(rows))
	for _, row := range rows {
		key, err := types.KeyFromBytes(row.KeyBytes)
		if err != nil {
			return nil, fmt.Errorf("corrupt named key %q: %w", row.Name, err)
		}
		nk[row.Name] = key
	}
	return nk, nil
}

func (o ops) PutNamedKey(owner types.Key, name string, key types.Key) error {
	row := DBNamedKey{
		Owner:    context.StorageID(owner),
		Name:     name,
		KeyBytes: key.ToBytes(),
	}
	return o.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"key_bytes"}),
	}).Create(&row).Error
}

func (o ops) RemoveNamedKey(owner types.Key, name string) error {
	return o.db.Where("owner = ? AND name = ?", context.StorageID(owner), name).
		Delete(&DBNamedKey{}).Error
}

func (o ops) GetContract(key types.Key) (types.ContractRecord, bool, error) {
	var row DBContract
	err := o.db.Where("address = ?", context.StorageID(key)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.ContractRecord{}, false, nil
	}
	if err != nil {
		return types.ContractRecord{}, false, fmt.Errorf("failed to load contract: %w", err)
	}
	rec, err := types.ContractRecordFromBytes(row.Record)
	if err != nil {
		return types.ContractRecord{}, false, fmt.Errorf("corrupt contract record: %w", err)
	}
	return rec, true, nil
}

func (o ops) PutContract(key types.Key, rec types.ContractRecord) error {
	row := DBContract{
		Address: context.StorageID(key),
		Record:  rec.ToBytes(),
	}
	return o.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"record"}),
	}).Create(&row).Error
}

func (o ops) IssueURef(rights types.AccessRights) (types.URef, error) {
	meta, err := o.meta()
	if err != nil {
		return types.URef{}, err
	}
	meta.URefNonce++
	if err := o.db.Save(&meta).Error; err != nil {
		return types.URef{}, err
	}
	addr := sha256.Sum256([]byte(fmt.Sprintf("uref:%d", meta.URefNonce)))
	row := DBURef{
		Address: hex.EncodeToString(addr[:]),
		Rights:  uint8(rights),
	}
	if err := o.db.Create(&row).Error; err != nil {
		return types.URef{}, fmt.Errorf("failed to record issued uref: %w", err)
	}
	return types.IssueURef(addr, rights), nil
}

func (o ops) IsIssued(uref types.URef) (bool, error) {
	addr := uref.Addr()
	var row DBURef
	err := o.db.Where("address = ?", hex.EncodeToString(addr[:])).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up uref: %w", err)
	}
	return uref.AccessRights().IsSubsetOf(types.AccessRights(row.Rights)), nil
}

func (o ops) LogEvent(source types.Key, name string, payload []byte) error {
	row := DBEvent{
		Source:  context.StorageID(source),
		Name:    name,
		Payload: payload,
	}
	return o.db.Create(&row).Error
}

func (o ops) Events() ([]context.Event, error) {
	var rows []DBEvent
	if err := o.db.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	out := make([]context.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, context.Event{
			Source:  row.Source,
			Name:    row.Name,
			Payload: row.Payload,
		})
	}
	return out, nil
}
