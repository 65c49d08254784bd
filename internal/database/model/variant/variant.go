package variant

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Variant — модификация товара MoySklad (variant).
// Характеристики храним сериализованным JSON: витрине они нужны только целиком.
type Variant struct {
	ID              int64          `db:"ID"`
	MoyskladID      string         `db:"MoyskladID"`
	Name            string         `db:"Name"`
	Code            sql.NullString `db:"Code"`
	Href            sql.NullString `db:"Href"`
	ProductID       int64          `db:"ProductID"`
	Price           sql.NullInt64  `db:"Price"`
	PriceOld        sql.NullInt64  `db:"PriceOld"`
	Characteristics sql.NullString `db:"Characteristics"`
}

type Store struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

func NewStore(db *sqlx.DB, logger *logrus.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) SelectByMoyskladID(moyskladID string) (*Variant, error) {

	var v Variant
	query := "SELECT * FROM Variant WHERE MoyskladID=$1;"
	err := s.db.Get(&v, query, moyskladID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%s)", query, moyskladID)
	}

	return &v, nil
}

func (s *Store) SelectByProductID(productID int64) ([]*Variant, error) {

	var variants []*Variant
	query := "SELECT * FROM Variant WHERE ProductID=$1 ORDER BY Name ASC;"
	err := s.db.Select(&variants, query, productID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%d)", query, productID)
	}

	return variants, nil
}

func (s *Store) Upsert(v *Variant) error {

	existing, err := s.SelectByMoyskladID(v.MoyskladID)
	if err != nil {
		return errors.Wrap(err, "failed in SelectByMoyskladID()")
	}

	if existing == nil {
		query := `INSERT INTO Variant (MoyskladID, Name, Code, Href, ProductID, Price, PriceOld, Characteristics)
			VALUES (:MoyskladID, :Name, :Code, :Href, :ProductID, :Price, :PriceOld, :Characteristics);`
		_, err = s.db.NamedExec(query, v)
		if err != nil {
			return errors.Wrapf(err, "failed INSERT to dbsqlite; query:\n%s(%v)", query, v)
		}
		s.logger.Debugf("Variant.Upsert: создан variant %s", v.MoyskladID)
		return nil
	}

	v.ID = existing.ID
	query := `UPDATE Variant SET Name=:Name, Code=:Code, Href=:Href, ProductID=:ProductID,
		Price=:Price, PriceOld=:PriceOld, Characteristics=:Characteristics
		WHERE ID=:ID;`
	_, err = s.db.NamedExec(query, v)
	if err != nil {
		return errors.Wrapf(err, "failed UPDATE to dbsqlite; query:\n%s(%v)", query, v)
	}

	s.logger.Debugf("Variant.Upsert: обновлен variant %s", v.MoyskladID)
	return nil
}

func (s *Store) DeleteNotIn(keep []string) error {

	if len(keep) == 0 {
		query := "DELETE FROM Variant;"
		_, err := s.db.Exec(query)
		if err != nil {
			return errors.Wrapf(err, "failed DELETE to dbsqlite; query:\n%s", query)
		}
		return nil
	}

	query, args, err := sqlx.In("DELETE FROM Variant WHERE MoyskladID NOT IN (?);", keep)
	if err != nil {
		return errors.Wrap(err, "failed in sqlx.In()")
	}

	query = s.db.Rebind(query)
	_, err = s.db.Exec(query, args...)
	if err != nil {
		return errors.Wrapf(err, "failed DELETE to dbsqlite; query:\n%s", query)
	}

	return nil
}

func (s *Store) DeleteByMoyskladID(moyskladID string) error {

	query := "DELETE FROM Variant WHERE MoyskladID=$1;"
	_, err := s.db.Exec(query, moyskladID)
	if err != nil {
		return errors.Wrapf(err, "failed DELETE to dbsqlite; query:\n%s(%s)", query, moyskladID)
	}

	return nil
}
