// Package keyspace builds the store keys and pub/sub topics used by the bus engine.
//
// Every key is prefixed with a namespace so that several buses can share one
// store:
//
//	<ns>/clients                   sorted set: client id -> last heartbeat (ms)
//	<ns>/clients/<id>/channels     set: channels the client subscribes to
//	<ns>/channels<channel>         set: clients subscribed to the channel
//	<ns>/clients/<id>/messages     list: queued serialized messages
//	<ns>/locks/<name>              string: lease expiry (ms)
//	<ns>/notifications/messages    topic: "queue of <id> changed"
//	<ns>/notifications/close       topic: "force-disconnect <id>"
//
// Channel names start with "/" so they are appended to "<ns>/channels" as is.
package keyspace

// Namespace is a key prefix. The zero value is the empty namespace.
type Namespace string

// New returns a namespace for prefix.
func New(prefix string) Namespace {
	return Namespace(prefix)
}

// String returns the raw prefix.
func (ns Namespace) String() string {
	return string(ns)
}

// Clients is the presence registry key.
func (ns Namespace) Clients() string {
	return string(ns) + "/clients"
}

// ClientChannels is the set of channels a client subscribes to.
func (ns Namespace) ClientChannels(clientID string) string {
	return string(ns) + "/clients/" + clientID + "/channels"
}

// ChannelClients is the set of clients subscribed to channel.
func (ns Namespace) ChannelClients(channel string) string {
	return string(ns) + "/channels" + channel
}

// ClientMessages is the queue of messages waiting for a client.
func (ns Namespace) ClientMessages(clientID string) string {
	return string(ns) + "/clients/" + clientID + "/messages"
}

// Lock is the lease key for a named lock.
func (ns Namespace) Lock(name string) string {
	return string(ns) + "/locks/" + name
}

// MessageTopic carries ids of clients whose queue changed.
func (ns Namespace) MessageTopic() string {
	return string(ns) + "/notifications/messages"
}

// CloseTopic carries ids of clients that must be disconnected.
func (ns Namespace) CloseTopic() string {
	return string(ns) + "/notifications/close"
}
