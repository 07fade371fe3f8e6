// Package interaction runs the spectrometer library over the bridge protocol.
//
// The bridge exposes every library call as one request/response pair. The
// host that can load the vendor library runs a Server in front of a
// device.Transport; remote processes use a Client, which is itself a
// device.Transport and can be handed to session.New.
//
// # Server Usage
//
//	server := interaction.NewServer(simTransport, interaction.ServerConfig{Name: "lab-1"})
//	ts, _ := transport.NewServer(transport.ServerConfig{
//	    OnMessage: server.Handler(ctx),
//	})
//
// Requests on one connection are handled in order. If the wrapped transport
// is multiplexed, requests run concurrently and responses may arrive out of
// order; the Hello result tells the client which mode the bridge uses.
//
// # Client Usage
//
//	client, err := interaction.Dial(ctx, "lab-1.local:7431", interaction.DialConfig{})
//	mgr := session.New(client, session.DefaultConfig())
//
// Responses are correlated by message ID. A call returns when its response
// arrives, its context ends, or the client timeout elapses, whichever is
// first. Vendor failures come back as *device.StatusError.
package interaction
