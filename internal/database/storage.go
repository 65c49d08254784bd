package database

// Схема зеркала каталога MoySklad.
// Category/Product/Variant/BundleItem — витринные таблицы,
// SyncState — singleton-запись статуса синка (аналог strapi.store).
const DB_SCHEMA = `CREATE TABLE Category (
	ID integer PRIMARY KEY AUTOINCREMENT,
	MoyskladID text NOT NULL UNIQUE,
	Name text NOT NULL,
	PathName text,
	Href text,
	Slug text NOT NULL,
	ParentID integer,
	ProductsCount integer NOT NULL DEFAULT 0,
	ProductsCountDirect integer NOT NULL DEFAULT 0,
	ProductsCountTotal integer NOT NULL DEFAULT 0
);

CREATE TABLE Product (
	ID integer PRIMARY KEY AUTOINCREMENT,
	MoyskladID text NOT NULL UNIQUE,
	Type text NOT NULL,
	Name text NOT NULL,
	DisplayTitle text,
	Href text,
	Code text,
	Updated text,
	CategoryID integer NOT NULL,
	Price integer,
	PriceOld integer,
	Uom text,
	Weight real,
	Volume real
);

CREATE TABLE BundleItem (
	ID integer PRIMARY KEY AUTOINCREMENT,
	BundleID integer NOT NULL,
	ComponentProductID integer NOT NULL,
	Quantity real NOT NULL,
	Title text NOT NULL
);

CREATE TABLE Variant (
	ID integer PRIMARY KEY AUTOINCREMENT,
	MoyskladID text NOT NULL UNIQUE,
	Name text NOT NULL,
	Code text,
	Href text,
	ProductID integer NOT NULL,
	Price integer,
	PriceOld integer,
	Characteristics text
);

CREATE TABLE SyncState (
	Key text PRIMARY KEY,
	Value text NOT NULL
);
`
