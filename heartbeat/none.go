package heartbeat

// NoneBackend performs no liveness monitoring: HEARTBEAT frames are
// never sent and timeouts never fire. Grounded on the original
// implementation's NoOp backend in pseud/heartbeat.py.
type NoneBackend struct{}

func (NoneBackend) Configure(rpc RPC) error { return nil }

func (NoneBackend) Stop() error { return nil }

func (NoneBackend) HandleHeartbeat(userID string, routingID []byte) error { return nil }

func (NoneBackend) HandleTimeout(userID string, routingID []byte) error { return nil }
