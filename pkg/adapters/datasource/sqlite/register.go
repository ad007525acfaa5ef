package sqlite

import (
	_ "modernc.org/sqlite"

	"github.com/ekaya-inc/campus-er/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.DialectRegistration{
		Info: datasource.DialectInfo{
			Type:        "sqlite",
			DisplayName: "SQLite",
			DriverName:  "sqlite",
		},
		Dialect: Dialect{},
	})
}
