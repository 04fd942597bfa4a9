package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// AgencyCode is the fixed branch code assigned to every account.
const AgencyCode = "0001"
