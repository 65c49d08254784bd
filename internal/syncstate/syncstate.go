package syncstate

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Status string

const (
	STATUS_IDLE    Status = "idle"
	STATUS_RUNNING Status = "running"
	STATUS_OK      Status = "ok"
	STATUS_ERROR   Status = "error"
)

type Kind string

const (
	KIND_CATEGORIES Kind = "categories"
	KIND_PRODUCTS   Kind = "products"
	KIND_VARIANTS   Kind = "variants"
	KIND_WEBHOOK    Kind = "webhook"
)

// STATE_KEY — ключ singleton-записи состояния в таблице SyncState.
const STATE_KEY = "moysklad.syncState"

const DEFAULT_LOCK_TTL = 10 * time.Minute

type Lock struct {
	IsLocked bool   `json:"isLocked"`
	LockedAt string `json:"lockedAt"` // RFC3339, пусто если не заблокировано
	LockedBy Kind   `json:"lockedBy"`
}

type Totals struct {
	Categories int `json:"categories,omitempty"`
	Products   int `json:"products,omitempty"`
	Variants   int `json:"variants,omitempty"`
}

// State — единственная запись статуса синка. Никогда не удаляется,
// только перезаписывается целиком.
type State struct {
	Status           Status `json:"status"`
	LastSyncAt       string `json:"lastSyncAt"`
	LastOkAt         string `json:"lastOkAt"`
	LastErrorAt      string `json:"lastErrorAt"`
	LastErrorMessage string `json:"lastErrorMessage"`
	LastRunKind      Kind   `json:"lastRunKind"`
	LastTotals       Totals `json:"lastTotals"`
	Lock             Lock   `json:"lock"`
}

func defaultState() *State {
	return &State{
		Status: STATUS_IDLE,
	}
}

// LockHeldError возвращается из Acquire, когда блокировка занята и не протухла.
type LockHeldError struct {
	Holder Kind
}

func (e *LockHeldError) Error() string {
	holder := e.Holder
	if holder == "" {
		holder = "unknown"
	}
	return fmt.Sprintf("sync lock is already acquired by %q", holder)
}

// IsLockHeld распознает LockHeldError в том числе сквозь errors.Wrap.
func IsLockHeld(err error) bool {
	var lockErr *LockHeldError
	return errors.As(err, &lockErr)
}

// Manager хранит состояние синка в sqlite и выдает advisory-блокировку
// с TTL. Запись одна на процесс(ы): любой живой держатель блокирует
// любой вид синка, протухшая блокировка молча перехватывается.
type Manager struct {
	db     *sqlx.DB
	logger *logrus.Logger
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(db *sqlx.DB, logger *logrus.Logger, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DEFAULT_LOCK_TTL
	}
	return &Manager{
		db:     db,
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
	}
}

// normalizeState дополняет частично сохраненный JSON дефолтами.
func normalizeState(raw string) *State {
	state := defaultState()
	if raw == "" {
		return state
	}

	err := json.Unmarshal([]byte(raw), state)
	if err != nil {
		// битую запись не считаем фатальной: начинаем с чистого состояния
		return defaultState()
	}

	if state.Status == "" {
		state.Status = STATUS_IDLE
	}

	return state
}

func (m *Manager) Get() (*State, error) {

	var raw string
	query := "SELECT Value FROM SyncState WHERE Key=$1;"
	err := m.db.Get(&raw, query, STATE_KEY)
	if err == sql.ErrNoRows {
		return defaultState(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%s)", query, STATE_KEY)
	}

	return normalizeState(raw), nil
}

func (m *Manager) getRaw() (string, error) {

	var raw string
	err := m.db.Get(&raw, "SELECT Value FROM SyncState WHERE Key=$1;", STATE_KEY)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "failed SELECT to dbsqlite (SyncState)")
	}

	return raw, nil
}

// casWrite записывает next только если запись не изменилась с момента чтения prev.
// Возвращает false, если кто-то успел перезаписать состояние (гонка).
func (m *Manager) casWrite(prev string, next *State) (bool, error) {

	data, err := json.Marshal(next)
	if err != nil {
		return false, errors.Wrap(err, "failed json.Marshal(SyncState)")
	}

	if prev == "" {
		res, err := m.db.Exec("INSERT OR IGNORE INTO SyncState (Key, Value) VALUES ($1, $2);", STATE_KEY, string(data))
		if err != nil {
			return false, errors.Wrap(err, "failed INSERT to dbsqlite (SyncState)")
		}
		n, _ := res.RowsAffected()
		return n == 1, nil
	}

	res, err := m.db.Exec("UPDATE SyncState SET Value=$1 WHERE Key=$2 AND Value=$3;", string(data), STATE_KEY, prev)
	if err != nil {
		return false, errors.Wrap(err, "failed UPDATE to dbsqlite (SyncState)")
	}

	n, _ := res.RowsAffected()
	return n == 1, nil
}

// update выполняет read-modify-write с compare-and-swap и повтором при гонке.
func (m *Manager) update(mutate func(*State) error) error {

	for attempt := 0; attempt < 5; attempt++ {
		raw, err := m.getRaw()
		if err != nil {
			return err
		}

		state := normalizeState(raw)
		err = mutate(state)
		if err != nil {
			return err
		}

		ok, err := m.casWrite(raw, state)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		m.logger.Debug("SyncState: CAS-конфликт, повторяем чтение")
	}

	return errors.New("failed CAS update of SyncState: too many conflicts")
}

func (m *Manager) isLockExpired(lock Lock) bool {
	if !lock.IsLocked {
		return true
	}
	if lock.LockedAt == "" {
		return true
	}

	lockedAt, err := time.Parse(time.RFC3339, lock.LockedAt)
	if err != nil {
		return true
	}

	return m.now().Sub(lockedAt) > m.ttl
}

// Acquire берет блокировку синка. Живая блокировка любого вида дает
// LockHeldError; протухшая (старше TTL) молча перехватывается — так
// упавший синк не требует ручного вмешательства.
func (m *Manager) Acquire(kind Kind) error {

	m.logger.Debugf("SyncState.Acquire: kind=%s", kind)

	return m.update(func(state *State) error {
		if state.Lock.IsLocked && !m.isLockExpired(state.Lock) {
			return &LockHeldError{Holder: state.Lock.LockedBy}
		}

		if state.Lock.IsLocked {
			m.logger.Warnf("SyncState.Acquire: блокировка %q протухла, перехватываем (kind=%s)", state.Lock.LockedBy, kind)
		}

		state.Lock = Lock{
			IsLocked: true,
			LockedAt: m.now().Format(time.RFC3339),
			LockedBy: kind,
		}
		return nil
	})
}

// Release снимает блокировку только если она наша: после перехвата
// протухшей блокировки бывший держатель не должен снять чужую.
func (m *Manager) Release(kind Kind) error {

	m.logger.Debugf("SyncState.Release: kind=%s", kind)

	return m.update(func(state *State) error {
		if !state.Lock.IsLocked {
			return nil
		}
		if state.Lock.LockedBy != kind {
			m.logger.Warnf("SyncState.Release: блокировка держится %q, не снимаем (kind=%s)", state.Lock.LockedBy, kind)
			return nil
		}

		state.Lock = Lock{}
		return nil
	})
}

func (m *Manager) MarkRunning(kind Kind) error {

	now := m.now().Format(time.RFC3339)
	return m.update(func(state *State) error {
		state.Status = STATUS_RUNNING
		state.LastSyncAt = now
		state.LastRunKind = kind
		state.LastErrorMessage = ""
		return nil
	})
}

func (m *Manager) MarkOk(kind Kind, totals Totals) error {

	now := m.now().Format(time.RFC3339)
	return m.update(func(state *State) error {
		state.Status = STATUS_OK
		state.LastSyncAt = now
		state.LastOkAt = now
		state.LastRunKind = kind
		state.LastErrorMessage = ""
		state.LastTotals = totals
		return nil
	})
}

func (m *Manager) MarkError(kind Kind, cause error) error {

	message := "unknown error"
	if cause != nil {
		message = cause.Error()
	}

	now := m.now().Format(time.RFC3339)
	return m.update(func(state *State) error {
		state.Status = STATUS_ERROR
		state.LastSyncAt = now
		state.LastErrorAt = now
		state.LastRunKind = kind
		state.LastErrorMessage = message
		return nil
	})
}
