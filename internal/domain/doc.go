// Package domain models NYC motor vehicle collision reports.
//
// # Data Source
//
// Records come from the NYPD "Motor Vehicle Collisions - Crashes" export
// published on NYC OpenData. Each row is one reported crash. The dashboard
// reads a fixed-size prefix of that CSV at start and keeps it in memory.
//
// # Column Conventions
//
// Header names are upper case with underscores (CRASH_DATE, ON_STREET_NAME).
// The raw OpenData export uses spaces instead ("CRASH DATE") and longer
// casualty names ("NUMBER OF PEDESTRIANS INJURED"); both spellings are accepted.
// After loading, every column name is lower case with underscores, and the
// date and time columns are merged into a single "date/time" column placed
// first.
//
// Date format:
//
//	MM/DD/YYYY        e.g. "09/11/2021"
//	YYYY-MM-DD        e.g. "2021-09-11"
//	YYYY-MM-DDT...    e.g. "2021-09-11T00:00:00.000" (time part ignored)
//
// Time format:
//
//	H:MM or HH:MM in 24-hour notation, e.g. "2:39" = 02:39.
//	HH:MM:SS is accepted as well.
//
// Timestamps carry no zone in the source and are kept in UTC.
//
// # Missing Values
//
// Empty cells are missing values. Rows with an empty LATITUDE or LONGITUDE are
// dropped at load time; that is the only validation performed on the data.
// Casualty counts and street names may be missing on retained rows and are
// modelled as Count{Valid: false} and "" respectively. Missing counts never
// satisfy a threshold comparison.
//
// # Victim Categories
//
// Pedestrians, Cyclists and Motorists each carry injured and killed counters.
// The "persons" counters aggregate all three and are not a selectable category.
package domain
