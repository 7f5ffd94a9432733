package identity

// manifestKey is the fixed repeating XOR key of the manifest file.
// It obfuscates, it does not protect.
const manifestKey = "h4cQkm3pL3a5E8u71FyoUc4Ntm34NsU5ukc"

// Obfuscate returns buf XORed with the manifest key.
func Obfuscate(buf []byte) []byte {
	out := make([]byte, len(buf))
	for i, b := range buf {
		out[i] = b ^ manifestKey[i%len(manifestKey)]
	}
	return out
}

// Deobfuscate is the inverse of Obfuscate (XOR is its own inverse).
func Deobfuscate(buf []byte) []byte {
	return Obfuscate(buf)
}
