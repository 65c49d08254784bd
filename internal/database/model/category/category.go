package category

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Category — зеркальная строка папки MoySklad (productfolder).
// Slug стабилен: назначается один раз при первом появлении и больше не меняется,
// чтобы URL витрины не ломались при переименовании в MoySklad.
type Category struct {
	ID                  int64          `db:"ID"`
	MoyskladID          string         `db:"MoyskladID"`
	Name                string         `db:"Name"`
	PathName            sql.NullString `db:"PathName"`
	Href                sql.NullString `db:"Href"`
	Slug                string         `db:"Slug"`
	ParentID            sql.NullInt64  `db:"ParentID"`
	ProductsCount       int            `db:"ProductsCount"`
	ProductsCountDirect int            `db:"ProductsCountDirect"`
	ProductsCountTotal  int            `db:"ProductsCountTotal"`
}

type Store struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

func NewStore(db *sqlx.DB, logger *logrus.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) SelectAll() ([]*Category, error) {

	var categories []*Category
	query := "SELECT * FROM Category ORDER BY Name ASC;"
	err := s.db.Select(&categories, query)
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s", query)
	}

	s.logger.Debugf("Category.SelectAll: получено строк %d", len(categories))
	return categories, nil
}

// SelectByMoyskladID возвращает nil без ошибки, если строка не найдена.
func (s *Store) SelectByMoyskladID(moyskladID string) (*Category, error) {

	var c Category
	query := "SELECT * FROM Category WHERE MoyskladID=$1;"
	err := s.db.Get(&c, query, moyskladID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%s)", query, moyskladID)
	}

	return &c, nil
}

func (s *Store) SelectBySlug(slug string) (*Category, error) {

	var c Category
	query := "SELECT * FROM Category WHERE Slug=$1;"
	err := s.db.Get(&c, query, slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%s)", query, slug)
	}

	return &c, nil
}

// Upsert обновляет Name/PathName/Href по MoyskladID или вставляет новую строку.
// Slug пишется только при вставке; ParentID и счетчики здесь не трогаем —
// их проставляют отдельные проходы синка.
func (s *Store) Upsert(c *Category) error {

	existing, err := s.SelectByMoyskladID(c.MoyskladID)
	if err != nil {
		return errors.Wrap(err, "failed in SelectByMoyskladID()")
	}

	if existing == nil {
		query := `INSERT INTO Category (MoyskladID, Name, PathName, Href, Slug)
			VALUES (:MoyskladID, :Name, :PathName, :Href, :Slug);`
		_, err = s.db.NamedExec(query, c)
		if err != nil {
			return errors.Wrapf(err, "failed INSERT to dbsqlite; query:\n%s(%v)", query, c)
		}
		s.logger.Debugf("Category.Upsert: создана категория %s", c.MoyskladID)
		return nil
	}

	query := "UPDATE Category SET Name=$1, PathName=$2, Href=$3 WHERE ID=$4;"
	_, err = s.db.Exec(query, c.Name, c.PathName, c.Href, existing.ID)
	if err != nil {
		return errors.Wrapf(err, "failed UPDATE to dbsqlite; query:\n%s(%v)", query, c)
	}

	s.logger.Debugf("Category.Upsert: обновлена категория %s", c.MoyskladID)
	return nil
}

func (s *Store) SetParent(id int64, parentID sql.NullInt64) error {

	query := "UPDATE Category SET ParentID=$1 WHERE ID=$2;"
	_, err := s.db.Exec(query, parentID, id)
	if err != nil {
		return errors.Wrapf(err, "failed UPDATE to dbsqlite; query:\n%s(%v, %d)", query, parentID, id)
	}

	return nil
}

// DeleteNotIn удаляет все категории, чей MoyskladID не входит в keep.
// Пустой keep означает "удалить все" (вне поддерева ничего не остается).
func (s *Store) DeleteNotIn(keep []string) error {

	if len(keep) == 0 {
		query := "DELETE FROM Category;"
		_, err := s.db.Exec(query)
		if err != nil {
			return errors.Wrapf(err, "failed DELETE to dbsqlite; query:\n%s", query)
		}
		return nil
	}

	query, args, err := sqlx.In("DELETE FROM Category WHERE MoyskladID NOT IN (?);", keep)
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

func (s *Store) UpdateCounts(id int64, direct int, total int) error {

	query := "UPDATE Category SET ProductsCount=$1, ProductsCountDirect=$2, ProductsCountTotal=$3 WHERE ID=$4;"
	_, err := s.db.Exec(query, total, direct, total, id)
	if err != nil {
		return errors.Wrapf(err, "failed UPDATE to dbsqlite; query:\n%s(%d)", query, id)
	}

	return nil
}

func (s *Store) DeleteByMoyskladID(moyskladID string) error {

	query := "DELETE FROM Category WHERE MoyskladID=$1;"
	_, err := s.db.Exec(query, moyskladID)
	if err != nil {
		return errors.Wrapf(err, "failed DELETE to dbsqlite; query:\n%s(%s)", query, moyskladID)
	}

	return nil
}
