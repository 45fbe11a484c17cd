/*

Package sender provides a client that sends Graphite plaintext protocol metrics to a carbon endpoint
over TCP or UDP.

Every metric is written as one line, "<prefix><name><suffix> <value> <timestamp>\n", where the prefix
is composed once from the configured prefix, system name and group, and the name is sanitized on
every send. The connection is opened when the client is created and is reused for every send; after a
write failure the next send makes a single reconnect attempt.

Helpers are also provided to flatten Influx line protocol metrics into Graphite samples.

Example

The following would send a metric immediately to a carbon daemon listening on port 2003:

	cfg := sender.DefaultConfig()
	cfg.Server = "graphite"
	cfg.Prefix = "apps"
	client, err := sender.NewClient(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect()

	client.Send(context.Background(), "requests", 12)

*/
package sender
