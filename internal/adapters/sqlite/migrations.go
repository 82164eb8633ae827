package sqlite

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trips (
	id                   TEXT PRIMARY KEY,
	owner_id             TEXT NULL,
	copied_from          TEXT NULL,
	title                TEXT NOT NULL,
	origin               TEXT NOT NULL DEFAULT '',
	province             TEXT NOT NULL,
	city                 TEXT NOT NULL DEFAULT '',
	start_date           TEXT NOT NULL,
	duration_days        INTEGER NOT NULL CHECK (duration_days >= 1),
	budget               TEXT NOT NULL,
	travel_style         TEXT NOT NULL,
	interests            TEXT NOT NULL DEFAULT '[]',
	status               TEXT NOT NULL,
	total_estimated_cost INTEGER NULL,
	created_at           TEXT NOT NULL,
	updated_at           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trips_owner ON trips(owner_id, created_at);

CREATE TABLE IF NOT EXISTS trip_days (
	id        TEXT PRIMARY KEY,
	trip_id   TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
	day_index INTEGER NOT NULL CHECK (day_index >= 1),
	day_date  TEXT NOT NULL,
	UNIQUE (trip_id, day_index)
);

CREATE TABLE IF NOT EXISTS trip_items (
	id             TEXT PRIMARY KEY,
	trip_id        TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
	day_id         TEXT NOT NULL REFERENCES trip_days(id) ON DELETE CASCADE,
	kind           TEXT NOT NULL,
	place_ref      TEXT NOT NULL DEFAULT '',
	title          TEXT NOT NULL,
	category       TEXT NOT NULL DEFAULT '',
	address        TEXT NOT NULL DEFAULT '',
	latitude       REAL NULL,
	longitude      REAL NULL,
	notes          TEXT NOT NULL DEFAULT '',
	start_at       TEXT NOT NULL,
	end_at         TEXT NOT NULL,
	sort_order     INTEGER NOT NULL,
	locked         INTEGER NOT NULL DEFAULT 0,
	price_tier     TEXT NOT NULL DEFAULT '',
	estimated_cost INTEGER NOT NULL DEFAULT 0 CHECK (estimated_cost >= 0)
);

CREATE INDEX IF NOT EXISTS idx_trip_items_day ON trip_items(day_id, sort_order);
CREATE INDEX IF NOT EXISTS idx_trip_items_trip ON trip_items(trip_id);

CREATE TABLE IF NOT EXISTS item_dependencies (
	id               TEXT PRIMARY KEY,
	trip_id          TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
	dependent_id     TEXT NOT NULL REFERENCES trip_items(id) ON DELETE CASCADE,
	prerequisite_id  TEXT NOT NULL REFERENCES trip_items(id) ON DELETE CASCADE,
	dependency_type  TEXT NOT NULL,
	violation_action TEXT NOT NULL,
	created_at       TEXT NOT NULL,
	CHECK (dependent_id <> prerequisite_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_item_dependencies_pair ON item_dependencies(dependent_id, prerequisite_id);
CREATE INDEX IF NOT EXISTS idx_item_dependencies_trip ON item_dependencies(trip_id, created_at);

CREATE TABLE IF NOT EXISTS item_votes (
	item_id    TEXT NOT NULL REFERENCES trip_items(id) ON DELETE CASCADE,
	session_id TEXT NOT NULL,
	upvote     INTEGER NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (item_id, session_id)
);

CREATE TABLE IF NOT EXISTS idempotency_keys (
	idempotency_key TEXT NOT NULL,
	subject_sub     TEXT NOT NULL,
	method          TEXT NOT NULL,
	route           TEXT NOT NULL,
	body_hash       TEXT NOT NULL,
	status_code     INTEGER NOT NULL,
	content_type    TEXT NOT NULL,
	body            BLOB NOT NULL,
	created_at      TEXT NOT NULL,
	PRIMARY KEY (idempotency_key, subject_sub, method, route, body_hash)
);

CREATE INDEX IF NOT EXISTS idx_idempotency_keys_created ON idempotency_keys(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
