package state

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"agora/core/types"
	"agora/storage"
)

var (
	errNoDatabase = errors.New("state: database not configured")
	errNoJournal  = errors.New("state: no transaction in progress")
)

// Manager persists the marketplace tables, the per-entity sequence counters,
// the account balances and the parameter store on top of a storage.Database.
// Writes issued between Begin and Commit are staged in a journal overlay so a
// failed operation can be rolled back without touching the backing store.
type Manager struct {
	mu      sync.Mutex
	db      storage.Database
	journal map[string][]byte
}

// NewManager constructs a state manager bound to the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a journal. Subsequent writes are staged until Commit.
func (m *Manager) Begin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal = make(map[string][]byte)
}

// Commit flushes all journalled writes to the database and closes the journal.
func (m *Manager) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.journal == nil {
		return errNoJournal
	}
	if m.db == nil {
		return errNoDatabase
	}
	for key, value := range m.journal {
		if err := m.db.Put([]byte(key), value); err != nil {
			return err
		}
	}
	m.journal = nil
	return nil
}

// Rollback discards all journalled writes, leaving the database untouched.
func (m *Manager) Rollback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal = nil
}

func (m *Manager) rawGet(key []byte) ([]byte, bool, error) {
	if m.journal != nil {
		if value, ok := m.journal[string(key)]; ok {
			return append([]byte(nil), value...), true, nil
		}
	}
	if m.db == nil {
		return nil, false, errNoDatabase
	}
	ok, err := m.db.Has(key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	value, err := m.db.Get(key)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (m *Manager) rawPut(key, value []byte) error {
	if m.journal != nil {
		m.journal[string(key)] = append([]byte(nil), value...)
		return nil
	}
	if m.db == nil {
		return errNoDatabase
	}
	return m.db.Put(key, value)
}

// KVGet decodes the JSON value stored under key into out, reporting whether
// the key exists.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok, err := m.rawGet(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", string(key), err)
	}
	return true, nil
}

// KVPut stores value under key, JSON encoded.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", string(key), err)
	}
	return m.rawPut(key, raw)
}

// --- sequence counters ---

func counterKey(entity string) []byte {
	return []byte("seq/" + entity)
}

// CounterNext increments the named counter and returns the freshly allocated
// identifier. Counters start at 1 and are never reused.
func (m *Manager) CounterNext(entity string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, err := m.counterCurrentLocked(entity)
	if err != nil {
		return 0, err
	}
	next := current + 1
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := m.rawPut(counterKey(entity), buf); err != nil {
		return 0, err
	}
	return next, nil
}

// CounterCurrent reports the last identifier allocated for the entity kind,
// zero when none has been allocated yet.
func (m *Manager) CounterCurrent(entity string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counterCurrentLocked(entity)
}

func (m *Manager) counterCurrentLocked(entity string) (uint64, error) {
	raw, ok, err := m.rawGet(counterKey(entity))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("state: malformed counter %q", entity)
	}
	return binary.BigEndian.Uint64(raw), nil
}

// --- accounts ---

func accountKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("account/%x", addr))
}

// GetAccount loads the account record for addr. Unknown addresses yield a
// zero-balance account rather than an error.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	var acc types.Account
	ok, err := m.KVGet(accountKey(addr), &acc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return (&types.Account{}).Normalize(), nil
	}
	return acc.Normalize(), nil
}

// PutAccount persists the account record for addr.
func (m *Manager) PutAccount(addr [20]byte, acc *types.Account) error {
	if acc == nil {
		return errors.New("state: nil account")
	}
	return m.KVPut(accountKey(addr), acc.Normalize())
}

// --- parameter store ---

func paramKey(name string) []byte {
	return []byte("params/" + name)
}

// ParamStoreSet stores an opaque parameter value under the given name.
func (m *Manager) ParamStoreSet(name string, value []byte) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("state: params key must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rawPut(paramKey(trimmed), value)
}

// ParamStoreGet fetches a parameter value, reporting whether it exists.
func (m *Manager) ParamStoreGet(name string) ([]byte, bool, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, false, errors.New("state: params key must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rawGet(paramKey(trimmed))
}

// --- module pauses ---

// IsPaused reports whether the named module has been switched off by the
// owner. Implements the native/common.PauseView interface.
func (m *Manager) IsPaused(module string) bool {
	raw, ok, err := m.ParamStoreGet("pause/" + module)
	if err != nil || !ok {
		return false
	}
	return len(raw) == 1 && raw[0] == 1
}

// SetPaused toggles the pause switch for the named module.
func (m *Manager) SetPaused(module string, paused bool) error {
	value := []byte{0}
	if paused {
		value[0] = 1
	}
	return m.ParamStoreSet("pause/"+module, value)
}

// --- escrow vault identity ---

var vaultAddr = deriveModuleAddress("agora/escrow/vault")

func deriveModuleAddress(tag string) [20]byte {
	hash := ethcrypto.Keccak256([]byte(tag))
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}

// VaultAddress returns the distinguished custodial identity holding escrowed
// funds. It is derived from a module tag, so no externally controlled
// principal can equal it.
func (m *Manager) VaultAddress() [20]byte {
	return vaultAddr
}
