// Package protocol defines the JSON wire format spoken between the roomsync
// server and its clients.
//
// Every frame is a JSON object tagged by a "type" field. Inbound frames are
// decoded into one of the Inbound variants (CreateRoom, JoinRoom, Update,
// Noclip, LevelComplete) so callers can switch on the concrete type instead
// of comparing strings. Outbound frames are plain structs built with the New*
// constructors and serialized with Encode.
//
// Inbound:
//
//	{"type":"create-room"}
//	{"type":"join-room","roomId":"4821"}
//	{"type":"update","position":{"x":1,"y":1,"z":1}}
//	{"type":"noclip"}
//	{"type":"level-complete","level":"level-2"}
//
// Outbound:
//
//	{"type":"room-created","roomId":"4821","playerId":"3f9a1c07b"}
//	{"type":"room-joined","roomId":"4821","playerId":"a81d44e02"}
//	{"type":"error","message":"Room is full"}
//	{"type":"state","players":[{"id":"3f9a1c07b","position":{"x":0,"y":1,"z":0}}]}
//	{"type":"trigger-noclip","triggeredBy":"3f9a1c07b"}
//	{"type":"trigger-level-complete","level":"level-2","triggeredBy":"3f9a1c07b"}
//
// Frames that fail to decode are reported with ErrMalformedMessage and are
// never answered.
package protocol
