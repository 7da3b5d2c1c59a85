/*
Package traffic records HTTP request traffic per application and answers the
debugging question "what did application X send us?".

Every Traffic document lives in the Traffic/App1Traffic collection and carries the
request headers as a string map. Lookups by application filter on the
"application-id" header:

	svc := traffic.NewService(provider, traffic.WithLogger(logger))
	defer svc.Close()

	all, err := svc.GetAllTraffic(ctx, "d3289594-de02-4c76-8fb1-5c125707c395")
*/
package traffic
