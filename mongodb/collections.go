package mongodb

const (
	UsersCollection   = "users"
	ClientsCollection = "oauth_clients"
	CodesCollection   = "oauth_auth_codes"
)
