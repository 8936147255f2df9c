// Package discovery locates the configuration files applying to a directory
// and cascades them: ancestor configurations are merged under nearer ones
// until a configuration marked as root is reached.
package discovery
