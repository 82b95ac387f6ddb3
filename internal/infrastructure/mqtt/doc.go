// Package mqtt provides MQTT client connectivity for the LwM2M endpoint.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) on the endpoint status topic
//   - Connection health monitoring
//
// # Topic Layout
//
// Every endpoint owns a subtree under the configured prefix:
//
//	{prefix}/{endpoint}/registration        retained object links
//	{prefix}/{endpoint}/request             server requests
//	{prefix}/{endpoint}/response/{id}       replies
//	{prefix}/{endpoint}/notify/{o}/{i}/{r}  observed values
//	{prefix}/{endpoint}/status              online/offline, LWT
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Anonymous access is only for local development and the embedded broker
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Client.Endpoint)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().Request(), 1,
//	    func(topic string, payload []byte) error {
//	        return handle(payload)
//	    })
package mqtt
