package bundleitem

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// BundleItem — строка состава комплекта.
// Состав не диффается: при каждом ресинке комплекта строки удаляются целиком
// и вставляются заново.
type BundleItem struct {
	ID                 int64   `db:"ID"`
	BundleID           int64   `db:"BundleID"`
	ComponentProductID int64   `db:"ComponentProductID"`
	Quantity           float64 `db:"Quantity"`
	Title              string  `db:"Title"`
}

type Store struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

func NewStore(db *sqlx.DB, logger *logrus.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) DeleteByBundleID(bundleID int64) error {

	query := "DELETE FROM BundleItem WHERE BundleID=$1;"
	_, err := s.db.Exec(query, bundleID)
	if err != nil {
		return errors.Wrapf(err, "failed DELETE to dbsqlite; query:\n%s(%d)", query, bundleID)
	}

	return nil
}

func (s *Store) Insert(item *BundleItem) error {

	query := `INSERT INTO BundleItem (BundleID, ComponentProductID, Quantity, Title)
		VALUES (:BundleID, :ComponentProductID, :Quantity, :Title);`
	_, err := s.db.NamedExec(query, item)
	if err != nil {
		return errors.Wrapf(err, "failed INSERT to dbsqlite; query:\n%s(%v)", query, item)
	}

	s.logger.Debugf("BundleItem.Insert: bundle=%d component=%d qty=%v", item.BundleID, item.ComponentProductID, item.Quantity)
	return nil
}

func (s *Store) SelectByBundleID(bundleID int64) ([]*BundleItem, error) {

	var items []*BundleItem
	query := "SELECT * FROM BundleItem WHERE BundleID=$1 ORDER BY ID ASC;"
	err := s.db.Select(&items, query, bundleID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%d)", query, bundleID)
	}

	return items, nil
}
