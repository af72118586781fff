package postgres

const eventSelectSQL = `
SELECT e.id, e.title, e.annotation, e.description, e.paid, e.participant_limit,
       e.request_moderation, e.state, e.created_on, e.published_on, e.event_date,
       c.id, c.name, u.id, u.name, l.id, l.lat, l.lon
FROM events e
JOIN categories c ON c.id = e.category_id
JOIN users u ON u.id = e.initiator_id
JOIN locations l ON l.id = e.location_id`

const getEventSQL = eventSelectSQL + `
WHERE e.id = $1`

const getEventForUpdateSQL = eventSelectSQL + `
WHERE e.id = $1
FOR UPDATE OF e`

const listByInitiatorSQL = eventSelectSQL + `
WHERE e.initiator_id = $1
ORDER BY e.created_on, e.id
LIMIT $2 OFFSET $3`

const insertEventSQL = `
INSERT INTO events (
  id, title, annotation, description, category_id, location_id, initiator_id,
  paid, participant_limit, request_moderation, state, created_on, published_on, event_date
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`

const updateEventSQL = `
UPDATE events SET
  title = $2, annotation = $3, description = $4, category_id = $5, location_id = $6,
  paid = $7, participant_limit = $8, request_moderation = $9, state = $10,
  published_on = $11, event_date = $12
WHERE id = $1
`

const resolveLocationSQL = `
INSERT INTO locations (id, lat, lon) VALUES ($1, $2, $3)
ON CONFLICT (lat, lon) DO UPDATE SET lat = EXCLUDED.lat
RETURNING id
`

const confirmedCountsSQL = `
SELECT event_id, COUNT(*)
FROM requests
WHERE status = 'CONFIRMED' AND event_id = ANY($1::uuid[])
GROUP BY event_id
`

const countConfirmedSQL = `
SELECT COUNT(*) FROM requests WHERE event_id = $1 AND status = 'CONFIRMED'
`

const requestColumns = `id, event_id, requester_id, created, status`

const getRequestForUpdateSQL = `
SELECT ` + requestColumns + ` FROM requests WHERE id = $1
FOR UPDATE
`

const requestExistsSQL = `
SELECT EXISTS (SELECT 1 FROM requests WHERE event_id = $1 AND requester_id = $2)
`

const insertRequestSQL = `
INSERT INTO requests (id, event_id, requester_id, created, status) VALUES ($1, $2, $3, $4, $5)
`

const requestsByIDsForUpdateSQL = `
SELECT ` + requestColumns + ` FROM requests WHERE id = ANY($1::uuid[])
ORDER BY created, id
FOR UPDATE
`

const requestsByStatusForUpdateSQL = `
SELECT ` + requestColumns + ` FROM requests WHERE event_id = $1 AND status = $2
ORDER BY created, id
FOR UPDATE
`

const setRequestStatusSQL = `
UPDATE requests SET status = $1 WHERE id = ANY($2::uuid[])
`

const requestsByRequesterSQL = `
SELECT ` + requestColumns + ` FROM requests WHERE requester_id = $1
ORDER BY created, id
`

const requestsByEventSQL = `
SELECT ` + requestColumns + ` FROM requests WHERE event_id = $1
ORDER BY created, id
`

const insertUserSQL = `INSERT INTO users (id, name, email) VALUES ($1, $2, $3)`
const getUserSQL = `SELECT id, name, email FROM users WHERE id = $1`
const deleteUserSQL = `DELETE FROM users WHERE id = $1`

const insertCategorySQL = `INSERT INTO categories (id, name) VALUES ($1, $2)`
const getCategorySQL = `SELECT id, name FROM categories WHERE id = $1`
const updateCategorySQL = `UPDATE categories SET name = $2 WHERE id = $1`
const deleteCategorySQL = `DELETE FROM categories WHERE id = $1`
const categoryInUseSQL = `SELECT EXISTS (SELECT 1 FROM events WHERE category_id = $1)`
const listCategoriesSQL = `SELECT id, name FROM categories ORDER BY name, id LIMIT $1 OFFSET $2`

const insertOutboxSQL = `
INSERT INTO event_outbox (
  message_id, routing_key, body, created_at, status, next_retry_at
) VALUES ($1, $2, $3::jsonb, $4, 'pending', $4)
`
