package middlewarectx

import (
	"net"
	"net/http"
)

// ClientIP возвращает IP клиента из RemoteAddr. Маршруты используют
// chi middleware.RealIP, поэтому за прокси здесь уже подставлен
// адрес из X-Forwarded-For / X-Real-IP.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
