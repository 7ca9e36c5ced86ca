package reporting

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
	"github.com/rs/zerolog"
)

// CountryLookup finds the ISO country code of an IP address.
type CountryLookup interface {
	Country(ipAddr string) string
}

// GeoIP looks up countries in a MaxMind GeoLite2 or GeoIP2 country database.
type GeoIP struct {
	logger zerolog.Logger
	reader *geoip2.Reader
}

// OpenGeoIP opens a country database file.
func OpenGeoIP(logger zerolog.Logger, path string) (db *GeoIP, err error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		err = fmt.Errorf("failed to open GeoIP database %s: %w", path, err)
		return
	}

	db = &GeoIP{logger: logger, reader: reader}
	return
}

// Country returns the ISO code of the country of ipAddr, or "" when unknown.
func (g *GeoIP) Country(ipAddr string) string {
	ip := net.ParseIP(ipAddr)
	if ip == nil {
		return ""
	}

	record, err := g.reader.Country(ip)
	if err != nil {
		g.logger.Warn().Err(err).Str("ip", ipAddr).Msg("GeoIP lookup failed")
		return ""
	}

	return record.Country.IsoCode
}

// Close releases the database.
func (g *GeoIP) Close() error {
	return g.reader.Close()
}
