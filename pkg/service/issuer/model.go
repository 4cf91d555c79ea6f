package issuer

import (
	"github.com/TBD54566975/ssi-sdk/crypto"
	didsdk "github.com/TBD54566975/ssi-sdk/did"

	"github.com/known-customer/kcc-issuer-service/pkg/dwn"
)

// BearerIdentity is the key material and document needed to sign on behalf of
// the issuer DID. It is persisted once at registration and read back on every
// issuance.
type BearerIdentity struct {
	DIDURI           string          `json:"didUri"`
	Document         didsdk.Document `json:"document"`
	KeyID            string          `json:"keyId"`
	KeyType          crypto.KeyType  `json:"keyType"`
	PrivateKeyBase58 string          `json:"privateKeyBase58"`
}

type RegisterResponse struct {
	DIDURI  string `json:"didUri"`
	AuthURL string `json:"authUrl"`

	// AlreadyRegistered is true when registration was a no-op because a prior
	// run completed it.
	AlreadyRegistered bool        `json:"alreadyRegistered"`
	ProtocolStatus    *dwn.Status `json:"protocolStatus,omitempty"`
}
