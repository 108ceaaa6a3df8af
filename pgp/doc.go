// Package pgp decodes OpenPGP detached signatures, as shipped next to Debian
// Release files (Release.gpg), from their ASCII armor down to the fields of
// the signature packet.
//
// # Layers
//
// Decoding goes through independent layers, each usable on its own:
//   - DecodeArmor strips the armor envelope, collects the header lines and
//     checks the CRC-24 checksum of the base64 payload.
//   - DecodeTag and DecodeHeader frame packets in both the old and the new
//     header formats; ReadPacket and ReadPackets frame a packet stream.
//   - DecodeSignature decodes a version 4 signature body, including its
//     hashed and unhashed subpacket regions and the signature integers.
//
// ReadSignature chains all of them for a complete Release.gpg file.
//
// # Errors
//
// Failures wrap one of the Err* kinds and can be classified with errors.Is
// or KindOf. Partial body lengths are recognized but not implemented and
// report ErrUnsupported, which KindOf distinguishes from malformed input.
// Decoders never return partially decoded values.
//
// # Verification
//
// Decoding never checks the cryptographic signature. Keyring.Verify does,
// using github.com/ProtonMail/go-crypto.
//
// Reference: https://www.rfc-editor.org/rfc/rfc4880
package pgp
