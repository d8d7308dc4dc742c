package poetenclave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageLevelWrappersDispatchToDefaultCore(t *testing.T) {
	Initialize(WithNodeName("package-level-test"))
	assert.NotEmpty(t, DefaultAntiSybilID())

	info, err := CreateSignupInfo("validator-1", "opkh-package-level", "nonce")
	require.NoError(t, err)
	assert.Equal(t, DefaultPoetPublicKey(), info.PoetPublicKey)

	assert.NoError(t, VerifySignupInfo(info, "opkh-package-level"))

	timer, err := CreateWaitTimer("validator-1", NullBlockIdentifier, 5.0)
	require.NoError(t, err)

	cert, err := CreateWaitCertificate(timer, "block-hash")
	require.NoError(t, err)
	assert.NoError(t, VerifyWaitCertificate(cert, DefaultPoetPublicKey()))
}
