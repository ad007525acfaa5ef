package postgres

import (
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ekaya-inc/campus-er/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.DialectRegistration{
		Info: datasource.DialectInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			DriverName:  "pgx",
		},
		Dialect: Dialect{},
	})
}
