package mysql

const upsertExtractSQL = `
INSERT INTO extracts (search_area, row_count)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE
  row_count  = VALUES(row_count),
  created_at = CURRENT_TIMESTAMP
`

const deleteSalesSQL = `DELETE FROM sales WHERE search_area = ?`

const insertSalesPrefix = "INSERT INTO sales\n" +
	"  (search_area, seq, address, date_sold, display_price, months_before_today, transaction_tenure, new_build,\n" +
	"   property_type, bedrooms, tenure, detail_url, `number`, road, town, postcode, lat, lon)\nVALUES "

// one placeholder group per row, 18 columns
const insertSalesRow = "(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)"

// rows per INSERT; keeps each statement well under max_allowed_packet
const insertBatch = 500

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const getExtractSQL = `SELECT row_count FROM extracts WHERE search_area = ?`

// `number` is reserved; keep it quoted everywhere.
const listSalesSQL = "SELECT\n" +
	"  address, date_sold, display_price, months_before_today, transaction_tenure, new_build,\n" +
	"  property_type, bedrooms, tenure, detail_url, `number`, road, town, postcode, lat, lon\n" +
	"FROM sales\n" +
	"WHERE search_area = ?\n" +
	"ORDER BY seq"
