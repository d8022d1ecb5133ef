package matching

// DefaultPools returns the static candidate pools, three per kind.
func DefaultPools() map[Kind][]Candidate {
	return map[Kind][]Candidate{
		KindTechnician: {
			{ID: "tech-1", Name: "Rahul Verma", Photo: "/img/providers/tech-1.jpg", Rating: 4.8, Experience: 6, ETAMinutes: 25, DistanceKM: 3.2},
			{ID: "tech-2", Name: "Sneha Iyer", Photo: "/img/providers/tech-2.jpg", Rating: 4.9, Experience: 8, ETAMinutes: 18, DistanceKM: 2.1},
			{ID: "tech-3", Name: "Arjun Mehta", Photo: "/img/providers/tech-3.jpg", Rating: 4.7, Experience: 4, ETAMinutes: 32, DistanceKM: 4.6},
		},
		KindCaregiver: {
			{ID: "care-1", Name: "Lakshmi Nair", Photo: "/img/providers/care-1.jpg", Rating: 4.9, Experience: 12},
			{ID: "care-2", Name: "Joseph Thomas", Photo: "/img/providers/care-2.jpg", Rating: 4.7, Experience: 7},
			{ID: "care-3", Name: "Meena Pillai", Photo: "/img/providers/care-3.jpg", Rating: 4.8, Experience: 9},
		},
		KindNurse: {
			{ID: "nurse-1", Name: "Priya Sharma", Photo: "/img/providers/nurse-1.jpg", Rating: 4.9, Experience: 10},
			{ID: "nurse-2", Name: "Anita George", Photo: "/img/providers/nurse-2.jpg", Rating: 4.8, Experience: 7},
			{ID: "nurse-3", Name: "Kavita Rao", Photo: "/img/providers/nurse-3.jpg", Rating: 4.6, Experience: 5},
		},
		KindDoctor: {
			{ID: "dhv-1", Name: "Dr. Anil Kapoor", Photo: "/img/providers/dhv-1.jpg", Rating: 4.9, Experience: 15, ETAMinutes: 40, DistanceKM: 5.5},
			{ID: "dhv-2", Name: "Dr. Sunita Reddy", Photo: "/img/providers/dhv-2.jpg", Rating: 4.8, Experience: 11, ETAMinutes: 35, DistanceKM: 4.0},
			{ID: "dhv-3", Name: "Dr. Vikram Singh", Photo: "/img/providers/dhv-3.jpg", Rating: 4.7, Experience: 9, ETAMinutes: 50, DistanceKM: 7.3},
		},
		KindAmbulance: {
			{ID: "amb-1", Name: "Ramesh Kumar", Photo: "/img/providers/amb-1.jpg", Rating: 4.8, Experience: 9, ETAMinutes: 8, DistanceKM: 2.4, Vehicle: "KA-01-AB-1234"},
			{ID: "amb-2", Name: "Suresh Patil", Photo: "/img/providers/amb-2.jpg", Rating: 4.7, Experience: 6, ETAMinutes: 12, DistanceKM: 3.9, Vehicle: "KA-05-CD-5678"},
			{ID: "amb-3", Name: "Imran Khan", Photo: "/img/providers/amb-3.jpg", Rating: 4.9, Experience: 11, ETAMinutes: 6, DistanceKM: 1.8, Vehicle: "KA-03-EF-9012"},
		},
		KindRider: {
			{ID: "rider-1", Name: "Vijay Das", Photo: "/img/providers/rider-1.jpg", Rating: 4.6, Experience: 3, ETAMinutes: 30, DistanceKM: 4.1},
			{ID: "rider-2", Name: "Karan Gill", Photo: "/img/providers/rider-2.jpg", Rating: 4.8, Experience: 5, ETAMinutes: 22, DistanceKM: 2.9},
			{ID: "rider-3", Name: "Farhan Ali", Photo: "/img/providers/rider-3.jpg", Rating: 4.7, Experience: 2, ETAMinutes: 35, DistanceKM: 5.0},
		},
	}
}
