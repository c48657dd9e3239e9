package mysql

// Note: `key` is reserved in MySQL, so the columns are k/v.
const getSQL = "SELECT v FROM review_store WHERE k = ?"

const upsertSQL = `
INSERT INTO review_store (k, v)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE
  v          = VALUES(v),
  updated_at = CURRENT_TIMESTAMP
`

const deleteSQL = "DELETE FROM review_store WHERE k = ?"
