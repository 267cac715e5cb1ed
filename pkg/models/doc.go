/*
Package models defines the value types shared by the proxy pool, its provider
adapters and the snapshot store.

ProxyDescriptor is the unit handed out by the pool. Its identity fields (host,
port, protocol, credentials, egress type and location) are set once by the
adapter that minted it. Its statistics (health, latency, counters and
timestamps) are owned by the pool and only mutated there; callers always get
a copy.

	d := models.NewDescriptor("static-dc", "10.0.0.1", 8080, models.ProtocolHTTP)
	d.Type = models.DatacenterType
	d.SetLocation("us", "ny")
	fmt.Println(d.URL()) // http://10.0.0.1:8080

Criteria selects descriptors at checkout time. Type, Country and State are
exact matches (location is case-insensitive) and empty fields match anything.
StickyKey binds the chosen descriptor to a logical caller such as a browser
profile.

Stats is the summary returned by the pool for dashboards and logging.
*/
package models
