package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

// Generates the ECDSA P-256 key pair the API signs tokens with and writes it
// to the default key paths. The server generates a pair itself on first run;
// this tool exists for provisioning the key ahead of time, e.g. to seed it
// into Vault.
func main() {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate key: %v\n", err)
		os.Exit(1)
	}

	privateKeyBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal private key: %v\n", err)
		os.Exit(1)
	}
	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "EC PRIVATE KEY",
		Bytes: privateKeyBytes,
	})

	publicKeyBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal public key: %v\n", err)
		os.Exit(1)
	}
	publicKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicKeyBytes,
	})

	if err := os.MkdirAll("keys", 0700); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create keys directory: %v\n", err)
		os.Exit(1)
	}

	privatePath := filepath.Join("keys", "jwt_private.pem")
	publicPath := filepath.Join("keys", "jwt_public.pem")

	if err := os.WriteFile(privatePath, privateKeyPEM, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write private key file: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(publicPath, publicKeyPEM, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write public key file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Generated ECDSA P-256 key pair for JWT signing.")
	fmt.Printf("Private key: %s\n", privatePath)
	fmt.Printf("Public key:  %s\n", publicPath)
	fmt.Println("\nTo store the key in Vault instead of the key files:")
	fmt.Printf("  vault kv put secret/letterflow/jwt private_key=@%s\n", privatePath)
}
