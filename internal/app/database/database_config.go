package database

type Driver string

const (
	DriverSqlite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

type DatabaseConfigJson struct {
	Driver           string `json:"driver"`
	ConnectionString string `json:"connection_string"`
	Migrate          bool   `json:"migrate"`
}

type DatabaseConfig struct {
	Driver           Driver
	ConnectionString string
	Migrate          bool
}

func (dcj DatabaseConfigJson) ConvertToDomain() DatabaseConfig {
	driver := Driver(dcj.Driver)
	if driver == "" {
		driver = DriverSqlite
	}
	connection := dcj.ConnectionString
	if connection == "" && driver == DriverSqlite {
		connection = "enact.db"
	}
	return DatabaseConfig{
		Driver:           driver,
		ConnectionString: connection,
		Migrate:          dcj.Migrate,
	}
}
