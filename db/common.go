package db

import (
	"fmt"

	"github.com/alwitt/clipsync/common"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

/*
GetSqliteDialector define a sqlite gorm dialector

	@param dbFile string - the sqlite DB file
	@returns sqlite dialector
*/
func GetSqliteDialector(dbFile string) gorm.Dialector {
	return sqlite.Open(dbFile)
}

/*
GetInMemSqliteDialector define an in-memory sqlite gorm dialector

	@param dbName string - in-memory DB name
	@returns sqlite dialector
*/
func GetInMemSqliteDialector(dbName string) gorm.Dialector {
	return sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", dbName))
}

/*
GetPostgresDialector define a Postgres gorm dialector

	@param config common.PostgresConfig - connection config
	@param password string - user password
	@returns postgres dialector
*/
func GetPostgresDialector(config common.PostgresConfig, password string) (gorm.Dialector, error) {
	dsn := fmt.Sprintf("host=%s user=%s dbname=%s port=%d", config.Host, config.User, config.Database, config.Port)
	if password != "" {
		dsn = fmt.Sprintf("%s password=%s", dsn, password)
	}
	if config.SSL.Enabled {
		dsn = fmt.Sprintf("%s sslmode=require", dsn)
		if config.SSL.CAFile != nil {
			dsn = fmt.Sprintf("%s sslrootcert=%s", dsn, *config.SSL.CAFile)
		}
	} else {
		dsn = fmt.Sprintf("%s sslmode=disable", dsn)
	}
	return postgres.Open(dsn), nil
}
