package storage

// SQL used by SQLiteRepository. Lists are ordered by id so that the per-plot
// breakdown follows the same order on every backend.
const (
	createPerson = `INSERT INTO people (first_name, last_name, email, phone) VALUES (?, ?, ?, ?)`
	getPerson    = `SELECT id, first_name, last_name, email, phone FROM people WHERE id = ?`
	listPeople   = `SELECT id, first_name, last_name, email, phone FROM people ORDER BY last_name, first_name, id`
	updatePerson = `UPDATE people SET first_name = ?, last_name = ?, email = ?, phone = ? WHERE id = ?`
	deletePerson = `DELETE FROM people WHERE id = ?`
	countPeople  = `SELECT COUNT(*) FROM people`

	createPassport = `INSERT INTO plant_passports (country_of_origin, date_of_issue, issuing_authority, certificate_number, description) VALUES (?, ?, ?, ?, ?)`
	getPassport    = `SELECT id, country_of_origin, date_of_issue, issuing_authority, certificate_number, description FROM plant_passports WHERE id = ?`
	listPassports  = `SELECT id, country_of_origin, date_of_issue, issuing_authority, certificate_number, description FROM plant_passports ORDER BY id`
	deletePassport = `DELETE FROM plant_passports WHERE id = ?`
	detachPassport = `UPDATE plants SET plant_passport_id = NULL WHERE plant_passport_id = ?`

	createPlant = `INSERT INTO plants (name, latin_name, price_cents, plant_passport_id) VALUES (?, ?, ?, ?)`
	getPlant    = `SELECT id, name, latin_name, price_cents, plant_passport_id FROM plants WHERE id = ?`
	listPlants  = `SELECT id, name, latin_name, price_cents, plant_passport_id FROM plants ORDER BY name, id`
	updatePlant = `UPDATE plants SET name = ?, latin_name = ?, price_cents = ?, plant_passport_id = ? WHERE id = ?`
	deletePlant = `DELETE FROM plants WHERE id = ?`

	createCountry = `INSERT INTO countries (name) VALUES (?)`
	getCountry    = `SELECT id, name FROM countries WHERE id = ?`
	listCountries = `SELECT id, name FROM countries ORDER BY name, id`
	updateCountry = `UPDATE countries SET name = ? WHERE id = ?`
	deleteCountry = `DELETE FROM countries WHERE id = ?`

	cityColumns = `ci.id, ci.name, ci.country_id, COALESCE(co.name, '')
	FROM cities ci
	LEFT JOIN countries co ON co.id = ci.country_id`
	createCity = `INSERT INTO cities (name, country_id) VALUES (?, ?)`
	getCity    = `SELECT ` + cityColumns + ` WHERE ci.id = ?`
	listCities = `SELECT ` + cityColumns + ` ORDER BY co.name, ci.name, ci.id`
	updateCity = `UPDATE cities SET name = ?, country_id = ? WHERE id = ?`
	deleteCity = `DELETE FROM cities WHERE id = ?`

	listOrderStatuses = `SELECT id, name FROM order_statuses ORDER BY id`

	orderColumns = `o.id, o.quantity, o.customer_id, o.plant_id, o.order_status_id,
		COALESCE(TRIM(c.first_name || ' ' || c.last_name), ''), COALESCE(p.name, ''), COALESCE(s.name, '')
	FROM orders o
	LEFT JOIN people c ON c.id = o.customer_id
	LEFT JOIN plants p ON p.id = o.plant_id
	LEFT JOIN order_statuses s ON s.id = o.order_status_id`
	createOrder = `INSERT INTO orders (quantity, customer_id, plant_id, order_status_id) VALUES (?, ?, ?, ?)`
	getOrder    = `SELECT ` + orderColumns + ` WHERE o.id = ?`
	listOrders  = `SELECT ` + orderColumns + ` ORDER BY o.id`
	updateOrder = `UPDATE orders SET quantity = ?, customer_id = ?, plant_id = ?, order_status_id = ? WHERE id = ?`
	deleteOrder = `DELETE FROM orders WHERE id = ?`

	createChoreDefinition = `INSERT INTO chore_definitions (name, description) VALUES (?, ?)`
	listChoreDefinitions  = `SELECT id, name, description FROM chore_definitions ORDER BY name, id`

	choreColumns = `ch.id, ch.chore_definition_id, ch.order_status_id, ch.person_id,
		COALESCE(d.name, ''), COALESCE(s.name, ''), COALESCE(TRIM(pe.first_name || ' ' || pe.last_name), '')
	FROM chores ch
	LEFT JOIN chore_definitions d ON d.id = ch.chore_definition_id
	LEFT JOIN order_statuses s ON s.id = ch.order_status_id
	LEFT JOIN people pe ON pe.id = ch.person_id`
	createChore = `INSERT INTO chores (chore_definition_id, order_status_id, person_id) VALUES (?, ?, ?)`
	getChore    = `SELECT ` + choreColumns + ` WHERE ch.id = ?`
	listChores  = `SELECT ` + choreColumns + ` ORDER BY ch.id`
	updateChore = `UPDATE chores SET chore_definition_id = ?, order_status_id = ?, person_id = ? WHERE id = ?`
	deleteChore = `DELETE FROM chores WHERE id = ?`

	createPlot     = `INSERT INTO plots (name) VALUES (?)`
	getPlot        = `SELECT id, name FROM plots WHERE id = ?`
	listPlots      = `SELECT id, name FROM plots ORDER BY id`
	updatePlot     = `UPDATE plots SET name = ? WHERE id = ?`
	deletePlot     = `DELETE FROM plots WHERE id = ?`
	detachPlotRows = `UPDATE ledger_entries SET plot_id = NULL WHERE plot_id = ?`

	createLedgerEntry = `INSERT INTO ledger_entries (amount_cents, plot_id, description, entry_date) VALUES (?, ?, ?, ?)`
	getLedgerEntry    = `SELECT id, amount_cents, plot_id, description, entry_date FROM ledger_entries WHERE id = ?`
	listLedgerEntries = `SELECT id, amount_cents, plot_id, description, entry_date FROM ledger_entries ORDER BY entry_date DESC, id DESC`
	updateLedgerEntry = `UPDATE ledger_entries SET amount_cents = ?, plot_id = ?, description = ?, entry_date = ? WHERE id = ?`
	deleteLedgerEntry = `DELETE FROM ledger_entries WHERE id = ?`

	// Aggregation pushed to SQLite: one row of counts and totals, then one
	// row per plot. NULL amounts fall through every CASE and add nothing.
	summaryTotals = `SELECT
		(SELECT COUNT(*) FROM orders),
		(SELECT COUNT(*) FROM chores),
		(SELECT COUNT(*) FROM people),
		COALESCE((SELECT SUM(amount_cents) FROM ledger_entries WHERE amount_cents > 0), 0),
		COALESCE((SELECT -SUM(amount_cents) FROM ledger_entries WHERE amount_cents < 0), 0)`
	summaryByPlot = `SELECT p.id, p.name,
		COALESCE(SUM(CASE WHEN l.amount_cents > 0 THEN l.amount_cents END), 0),
		COALESCE(-SUM(CASE WHEN l.amount_cents < 0 THEN l.amount_cents END), 0)
	FROM plots p
	LEFT JOIN ledger_entries l ON l.plot_id = p.id
	GROUP BY p.id, p.name
	ORDER BY p.id`

	saveSnapshot   = `INSERT INTO dashboard_snapshots (summary_json, computed_at) VALUES (?, ?)`
	latestSnapshot = `SELECT summary_json, computed_at FROM dashboard_snapshots ORDER BY computed_at DESC, id DESC LIMIT 1`
	pruneSnapshots = `DELETE FROM dashboard_snapshots WHERE id NOT IN (SELECT id FROM dashboard_snapshots ORDER BY id DESC LIMIT ?)`
)
