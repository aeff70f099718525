// Package wire defines telemetry protocol between sensor device and collector.
//
// Protocol version 1, stream transport (TCP).
//
// Endpoints exchange frames, all integers big endian:
//
//	magic:2=0x7331 length:2 seq:2 flags:1 [ackseq:2] payload:var
//
// length is the total frame size including header, max 65535.
// Device sends one frame per Batch with increasing seq.
// Collector replies with flag Ack, ackseq = received seq and Ack payload.
// Device discards batch samples only after Ack without Error.
//
// Payloads are protobuf messages, see telemetry.proto.
// Batch.version must be 1, unknown versions are rejected with Ack.error.
//
// Legacy line protocol (fire-and-forget, no ack) is accepted too:
// records of `key<TAB>value\n` lines terminated by `end\n`.
// Collector sniffs protocol by the first two bytes of connection.
package wire
