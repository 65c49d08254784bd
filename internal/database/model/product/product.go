package product

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	TYPE_PRODUCT = "product" // обычный товар
	TYPE_BUNDLE  = "bundle"  // комплект (состав лежит в BundleItem)
)

// Product — зеркальная строка товара/комплекта MoySklad.
// Товары и комплекты лежат в одной таблице и различаются полем Type,
// чтобы витрина и счетчики работали с ними одинаково.
type Product struct {
	ID           int64           `db:"ID"`
	MoyskladID   string          `db:"MoyskladID"`
	Type         string          `db:"Type"`
	Name         string          `db:"Name"`
	DisplayTitle sql.NullString  `db:"DisplayTitle"`
	Href         sql.NullString  `db:"Href"`
	Code         sql.NullString  `db:"Code"`
	Updated      sql.NullString  `db:"Updated"`
	CategoryID   int64           `db:"CategoryID"`
	Price        sql.NullInt64   `db:"Price"`
	PriceOld     sql.NullInt64   `db:"PriceOld"`
	Uom          sql.NullString  `db:"Uom"`
	Weight       sql.NullFloat64 `db:"Weight"`
	Volume       sql.NullFloat64 `db:"Volume"`
}

type Store struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

func NewStore(db *sqlx.DB, logger *logrus.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) SelectByMoyskladID(moyskladID string) (*Product, error) {

	var p Product
	query := "SELECT * FROM Product WHERE MoyskladID=$1;"
	err := s.db.Get(&p, query, moyskladID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%s)", query, moyskladID)
	}

	return &p, nil
}

// Upsert полностью перезаписывает атрибуты товара по MoyskladID.
func (s *Store) Upsert(p *Product) error {

	existing, err := s.SelectByMoyskladID(p.MoyskladID)
	if err != nil {
		return errors.Wrap(err, "failed in SelectByMoyskladID()")
	}

	if existing == nil {
		query := `INSERT INTO Product (MoyskladID, Type, Name, DisplayTitle, Href, Code, Updated, CategoryID, Price, PriceOld, Uom, Weight, Volume)
			VALUES (:MoyskladID, :Type, :Name, :DisplayTitle, :Href, :Code, :Updated, :CategoryID, :Price, :PriceOld, :Uom, :Weight, :Volume);`
		_, err = s.db.NamedExec(query, p)
		if err != nil {
			return errors.Wrapf(err, "failed INSERT to dbsqlite; query:\n%s(%v)", query, p)
		}
		s.logger.Debugf("Product.Upsert: создан %s %s", p.Type, p.MoyskladID)
		return nil
	}

	p.ID = existing.ID
	query := `UPDATE Product SET Type=:Type, Name=:Name, DisplayTitle=:DisplayTitle, Href=:Href, Code=:Code, Updated=:Updated,
		CategoryID=:CategoryID, Price=:Price, PriceOld=:PriceOld, Uom=:Uom, Weight=:Weight, Volume=:Volume
		WHERE ID=:ID;`
	_, err = s.db.NamedExec(query, p)
	if err != nil {
		return errors.Wrapf(err, "failed UPDATE to dbsqlite; query:\n%s(%v)", query, p)
	}

	s.logger.Debugf("Product.Upsert: обновлен %s %s", p.Type, p.MoyskladID)
	return nil
}

// DeleteStaleByType удаляет строки указанного типа, чей MoyskladID не входит в keep.
// Типы чистятся раздельно: удаление устаревших bundle не задевает product и наоборот.
func (s *Store) DeleteStaleByType(productType string, keep []string) error {

	if len(keep) == 0 {
		query := "DELETE FROM Product WHERE Type=$1;"
		_, err := s.db.Exec(query, productType)
		if err != nil {
			return errors.Wrapf(err, "failed DELETE to dbsqlite; query:\n%s(%s)", query, productType)
		}
		return nil
	}

	query, args, err := sqlx.In("DELETE FROM Product WHERE Type=? AND MoyskladID NOT IN (?);", productType, keep)
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

	query := "DELETE FROM Product WHERE MoyskladID=$1;"
	_, err := s.db.Exec(query, moyskladID)
	if err != nil {
		return errors.Wrapf(err, "failed DELETE to dbsqlite; query:\n%s(%s)", query, moyskladID)
	}

	return nil
}

// SelectByCategoryIDs — страница товаров по набору категорий (поддерево витрины).
func (s *Store) SelectByCategoryIDs(categoryIDs []int64, limit int, offset int) ([]*Product, error) {

	if len(categoryIDs) == 0 {
		return []*Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM Product WHERE CategoryID IN (?) ORDER BY Name ASC LIMIT ? OFFSET ?;", categoryIDs, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed in sqlx.In()")
	}

	var products []*Product
	query = s.db.Rebind(query)
	err = s.db.Select(&products, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s", query)
	}

	return products, nil
}

func (s *Store) CountByCategoryIDs(categoryIDs []int64) (int, error) {

	if len(categoryIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In("SELECT COUNT(*) FROM Product WHERE CategoryID IN (?);", categoryIDs)
	if err != nil {
		return 0, errors.Wrap(err, "failed in sqlx.In()")
	}

	var total int
	query = s.db.Rebind(query)
	err = s.db.Get(&total, query, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s", query)
	}

	return total, nil
}
