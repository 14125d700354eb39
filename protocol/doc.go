package protocol

// This package implements the framing that EPP uses over TCP (RFC 5734).
//
// Every message in either direction is a single frame:
//
//   ```
//     +----------------+----------------------------+
//     | length (u32 BE)| UTF-8 XML payload          |
//     +----------------+----------------------------+
//   ```
//
// - the 4 byte length is big-endian and counts the WHOLE frame, header included,
//   so a 100 byte payload is announced as 104
// - a length smaller than 4 is malformed
// - there is no terminator, the next frame starts right after the payload
//
// === Session
//
// The server sends a greeting frame as soon as the connection is established.
// After that every client frame is answered by exactly one server frame, in the
// order they were received. This is what allows a client to pipeline several
// frames in a single write and read the responses back one by one.
//
//   ```
//     < <greeting>
//     > <command> (clTRID ABC-1)
//     < <response> (clTRID ABC-1)
//   ```
//
// === Partial I/O
//
// Neither the header nor the payload is guaranteed to arrive in a single read.
// ReadFrame accumulates until the announced number of bytes is present.
//
// - the peer closing before any byte of a frame arrived is a clean io.EOF
// - the peer closing part way through a frame is a *ShortReadError carrying
//   the expected and received byte counts
//
// Writes are not required to be atomic, any sequence of writes that delivers
// the same bytes is equivalent. WriteFrames still concatenates pipelined frames
// into one buffer so they can share TCP segments.
//
// === Size limit
//
// The length field allows frames of up to 4GiB. To avoid a peer forcing us to
// allocate that much, frames above MaxFrameSize are rejected with
// ErrFrameTooLarge before the payload is read.
//
