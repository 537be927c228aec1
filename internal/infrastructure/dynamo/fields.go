package dynamo

// DynamoDB attribute names used in keys and expressions across repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldExternalID = "external_id"
	fieldEmail      = "email"
	fieldCode       = "code"
	fieldVerified   = "verified"
	fieldTTL        = "ttl"
)

// DynamoDB cancellation reason code for a failed condition inside a transaction.
const reasonConditionalCheckFailed = "ConditionalCheckFailed"
