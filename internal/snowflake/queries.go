package snowflake

// Queries holds the SQL the client runs. Placeholders use "?" binding.
type Queries struct {
	// Usage takes the lookback in days and returns CLIENT_APPLICATION_ID,
	// USER_NAME, SESSION_COUNT, LAST_ACCESSED.
	Usage string
	// SupportInfo returns a single column holding the JSON array of
	// SYSTEM$CLIENT_VERSION_INFO().
	SupportInfo string
	// Account returns the account name and region.
	Account string
	// Complete takes the model and prompt and returns the completion.
	Complete string
}

// DefaultQueries are the queries run against a live account. Sessions from
// the Snowflake web UI and Snowsight are excluded.
var DefaultQueries = Queries{
	Usage: `SELECT CLIENT_APPLICATION_ID,
       USER_NAME,
       COUNT(SESSION_ID) AS SESSION_COUNT,
       MAX(DATE(CREATED_ON)) AS LAST_ACCESSED
FROM SNOWFLAKE.ACCOUNT_USAGE.SESSIONS
WHERE DATE(CREATED_ON) >= DATEADD(day, -?, CURRENT_DATE())
  AND NOT (CLIENT_APPLICATION_ID ILIKE '%SNOWFLAKE%UI%'
       OR CLIENT_ENVIRONMENT ILIKE '%{"APPLICATION":"%Snowflake%"}'
       OR CLIENT_APPLICATION_ID ILIKE '%SNOWSIGHT%')
GROUP BY CLIENT_APPLICATION_ID, USER_NAME`,
	SupportInfo: `SELECT SYSTEM$CLIENT_VERSION_INFO()`,
	Account:     `SELECT CURRENT_ACCOUNT(), CURRENT_REGION()`,
	Complete:    `SELECT SNOWFLAKE.CORTEX.COMPLETE(?, ?)`,
}
