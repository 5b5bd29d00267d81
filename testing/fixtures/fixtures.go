// Package fixtures provides well-known signers for use in tests.
package fixtures

import "github.com/keywarden/go-keywarden/principal/ed25519/signer"

// did:key:z6MkntfUkVsXxpmA9d7beiFvpnaDJWkHugq56mZuT15agamo
var Alice, _ = signer.Parse("MgCZ+9FbHJ/7uwoeVxBLV8xuVVyJJkxbhc7pcPxXIpM6uau0BfV+DJkROsioLHFnO4TJ/e9Es/tkWb+mZEJVHShyYOnI=")

// did:key:z6Mkkf6cVH2H8MEXQqNJofx5ZokeSi1nsks3m8uUh8L7qn8D
var Bob, _ = signer.Parse("MgCbCPadHUyPYPZ4KaPusM+5AkimgCi0r9SCD5forF7TXo+0BXC5s8TscV5ealMa5TtwqaJcKGOAuRhbcnuhump/SMHY=")

// did:key:z6MktDzmPWeYhnQFwVXdScNHEtg1i3oKs7Qaz9q4V4hKVvhg
var Mallory, _ = signer.Parse("MgCZciDsPEOFishshYfv4jOn6LSH79geDHR8U2MCnumkhhO0BzJ3KP7LPjgfIRudDp6ETQXOX/R6PuZqxAs1Kz3dufes=")

// did:key:z6MkoxU6Bs8jmzGDfHrCqVuRLdrTPoe4HrRL1TCMNFUgm7vN
var Service, _ = signer.Parse("MgCaXdu/d+BH2VXcogbrK62CktUxrdIQJ/3FTM9KNQqt7hO0BjTSlFijcUudmNLQbl+7J2NeXwmWCfiOD/JXc9r6pXR8=")
