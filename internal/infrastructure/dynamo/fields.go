package dynamo

// DynamoDB attribute names used in keys and expressions across the repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldPhone     = "phone"
	fieldUserID    = "user_id"
	fieldSessionID = "session_id"
	fieldExpiresAt = "expires_at"
)
