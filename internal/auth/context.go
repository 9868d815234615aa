package auth

import "github.com/gin-gonic/gin"

// Merchant and user identity are injected by the API gateway as headers.
const (
	HeaderMerchantID = "X-Merchant-ID"
	HeaderUserID     = "X-User-ID"
)

func GetMerchantID(c *gin.Context) string {
	return c.GetHeader(HeaderMerchantID)
}

func GetUserID(c *gin.Context) string {
	return c.GetHeader(HeaderUserID)
}
