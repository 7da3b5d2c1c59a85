/*
Package connect turns an endpoint URL and key into a datastore.Backend.

	dynamodb://us-west-2                          key: ACCESS_KEY_ID:SECRET_ACCESS_KEY
	dynamodb+http://localhost:8000?region=local   key: ACCESS_KEY_ID:SECRET_ACCESS_KEY
	mongodb://user@host:27017/?tls=true           key: password for user
	mongodb+srv://user@cluster.example.net        key: password for user
	redis://host:6379/0, rediss://host:6380       key: password
	memory://                                     key: any non-blank value

Unknown schemes and malformed keys are reported as InvalidConfiguration errors.
*/
package connect
