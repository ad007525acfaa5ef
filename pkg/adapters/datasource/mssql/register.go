package mssql

import (
	_ "github.com/microsoft/go-mssqldb"

	"github.com/ekaya-inc/campus-er/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.DialectRegistration{
		Info: datasource.DialectInfo{
			Type:        "sqlserver",
			DisplayName: "Microsoft SQL Server",
			DriverName:  "sqlserver",
		},
		Dialect: Dialect{},
	})
}
