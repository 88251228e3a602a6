package analysis

import "strconv"

// Service names as printed by tcpdump from /etc/services.
var commonPorts = map[int]string{
	20:   "ftp-data",
	21:   "ftp",
	22:   "ssh",
	23:   "telnet",
	25:   "smtp",
	53:   "domain",
	80:   "http",
	110:  "pop3",
	143:  "imap",
	443:  "https",
	591:  "http-alt",
	3128: "squid",
	3306: "mysql",
	5432: "postgresql",
	6379: "redis",
	8008: "http",
	8080: "http-alt",
	8443: "https-alt",
}

// GetServiceName returns the tcpdump-style name for a port, or the port number as a string.
func GetServiceName(port int) string {
	if name, ok := commonPorts[port]; ok {
		return name
	}
	return strconv.Itoa(port)
}
